package models

// ViewState is the canonical UI mode inferred from marker controls.
// It is recomputed on every probe and never cached across navigation.
type ViewState int

const (
	Unknown ViewState = iota
	ListView
	DetailView
	FormView
)

func (v ViewState) String() string {
	switch v {
	case ListView:
		return "list"
	case DetailView:
		return "detail"
	case FormView:
		return "form"
	default:
		return "unknown"
	}
}
