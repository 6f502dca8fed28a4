package dialog

// Reply is the render directive returned after every engine operation:
// what to show the user next. Transports decide how to draw it.
type Reply struct {
	Definition string   `json:"ritual"`
	Session    string   `json:"session,omitempty"`
	Title      string   `json:"title,omitempty"`
	Step       string   `json:"step,omitempty"`
	Prompt     string   `json:"prompt,omitempty"`
	Input      string   `json:"input,omitempty"`
	Choices    []Choice `json:"choices,omitempty"`
	Multi      bool     `json:"multi,omitempty"`
	Min        int      `json:"min,omitempty"`
	Max        int      `json:"max,omitempty"`
	Skippable  bool     `json:"skippable,omitempty"`
	CanGoBack  bool     `json:"can_go_back,omitempty"`
	Resumed    bool     `json:"resumed,omitempty"`
	Done       bool     `json:"done,omitempty"`
	Summary    string   `json:"summary,omitempty"`
}

func render(def *Definition, s *Session) *Reply {
	step, _ := def.Step(s.Current)
	v := View{s: s}
	r := &Reply{
		Definition: def.Name,
		Session:    s.ID,
		Title:      def.Title,
		Step:       step.Name,
		Prompt:     step.Prompt(v),
		Input:      step.Input.Kind.String(),
		Skippable:  step.Skippable,
		CanGoBack:  len(s.History) > 0,
	}
	switch step.Input.Kind {
	case InputChoice:
		r.Choices = step.Input.Choices(v)
		r.Multi = step.Input.Multi
	case InputNumber:
		r.Min, r.Max = step.Input.Min, step.Input.Max
	}
	return r
}
