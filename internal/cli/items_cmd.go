package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arbr39/kaizen/internal/cli/formatter"
	"github.com/arbr39/kaizen/internal/domain"
)

func newItemsCmd(e *env) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:     "items",
		Aliases: []string{"item"},
		Short:   "List and manage reward items",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := e.ensureAccount(ctx); err != nil {
				return err
			}
			items, err := e.app.Items.List(ctx, e.accountID(), all)
			if err != nil {
				return err
			}
			balance, err := e.app.Ledger.Balance(ctx, e.accountID())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatItems(items, balance))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include archived items")

	cmd.AddCommand(
		newItemAddCmd(e),
		newItemStatusCmd(e, "archive", "Hide an item from the shop", e.archiveItem),
		newItemStatusCmd(e, "unarchive", "Put an archived item back on sale", e.unarchiveItem),
		newItemStatusCmd(e, "remove", "Delete an item", e.deleteItem),
	)
	return cmd
}

func newItemAddCmd(e *env) *cobra.Command {
	var name, category string
	var price int64
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a reward item (form when flags are omitted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if name == "" || price <= 0 {
				if !e.isInteractive() {
					return fmt.Errorf("--name and --price are required")
				}
				in := itemInput{Name: name, Category: category}
				if price > 0 {
					in.Price = strconv.FormatInt(price, 10)
				}
				if err := itemForm(&in).RunWithContext(ctx); err != nil {
					return err
				}
				var err error
				name, category = in.Name, in.Category
				if price, err = strconv.ParseInt(in.Price, 10, 64); err != nil {
					return fmt.Errorf("invalid price %q", in.Price)
				}
			}
			item, err := e.addItem(ctx, name, price, category)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s for %d.\n", item.Name, item.Price)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Item name")
	cmd.Flags().Int64Var(&price, "price", 0, "Price in points")
	cmd.Flags().StringVar(&category, "category", "", "Optional category")
	return cmd
}

func newItemStatusCmd(e *env, use, short string, apply func(ctx context.Context, itemID string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <item>",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := e.ensureAccount(ctx); err != nil {
				return err
			}
			item, err := e.findItem(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if err := apply(ctx, item.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %sd.\n", item.Name, strings.TrimSuffix(use, "e"))
			return nil
		},
	}
}

func (e *env) addItem(ctx context.Context, name string, price int64, category string) (*domain.RedeemableItem, error) {
	if err := e.ensureAccount(ctx); err != nil {
		return nil, err
	}
	item := &domain.RedeemableItem{
		AccountID: e.accountID(),
		Name:      strings.TrimSpace(name),
		Price:     price,
		Category:  strings.TrimSpace(category),
	}
	if err := e.app.Items.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// findItem resolves a reference among active and archived items: list
// position, id, or case-insensitive name.
func (e *env) findItem(ctx context.Context, ref string) (*domain.RedeemableItem, error) {
	items, err := e.app.Items.List(ctx, e.accountID(), true)
	if err != nil {
		return nil, err
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(items) {
		return items[n-1], nil
	}
	for _, it := range items {
		if it.ID == ref || strings.EqualFold(it.Name, ref) {
			return it, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrItemNotFound, ref)
}

func (e *env) archiveItem(ctx context.Context, id string) error {
	return e.app.Items.Archive(ctx, e.accountID(), id)
}

func (e *env) unarchiveItem(ctx context.Context, id string) error {
	return e.app.Items.Unarchive(ctx, e.accountID(), id)
}

func (e *env) deleteItem(ctx context.Context, id string) error {
	return e.app.Items.Delete(ctx, e.accountID(), id)
}
