package widget

// Kind identifies a widget variant. It doubles as the JSON discriminant key.
type Kind string

const (
	KindTextInput     Kind = "textInput"
	KindNumberInput   Kind = "numberInput"
	KindSelectbox     Kind = "selectbox"
	KindMultiSelect   Kind = "multiSelect"
	KindCheckbox      Kind = "checkbox"
	KindCheckboxGroup Kind = "checkboxGroup"
	KindRadio         Kind = "radio"
	KindDateInput     Kind = "dateInput"
	KindDateTimeInput Kind = "dateTimeInput"
	KindTimeInput     Kind = "timeInput"
	KindTextArea      Kind = "textArea"
	KindTable         Kind = "table"
	KindButton        Kind = "button"
	KindMarkdown      Kind = "markdown"
	KindColumns       Kind = "columns"
	KindColumnItem    Kind = "columnItem"
	KindForm          Kind = "form"
)

// Kinds lists every variant in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindTextInput, KindNumberInput, KindSelectbox, KindMultiSelect,
		KindCheckbox, KindCheckboxGroup, KindRadio, KindDateInput,
		KindDateTimeInput, KindTimeInput, KindTextArea, KindTable,
		KindButton, KindMarkdown, KindColumns, KindColumnItem, KindForm,
	}
}

// Valid reports whether k names a known variant.
func (k Kind) Valid() bool {
	return NewContent(k) != nil
}

// IsContainer reports whether widgets of kind k only scope the paths of their children.
func (k Kind) IsContainer() bool {
	switch k {
	case KindColumns, KindColumnItem, KindForm:
		return true
	}
	return false
}

// HasValue reports whether kind k carries a user-editable value.
// Forms carry their submit flag.
func (k Kind) HasValue() bool {
	switch k {
	case KindMarkdown, KindColumns, KindColumnItem:
		return false
	}
	return k.Valid()
}

// IsMomentary reports whether the value of kind k is only true for the pass it triggered.
func (k Kind) IsMomentary() bool {
	return k == KindButton || k == KindForm
}

// NewContent returns an empty Content for k, or nil if k is unknown.
func NewContent(k Kind) Content {
	switch k {
	case KindTextInput:
		return &TextInput{}
	case KindNumberInput:
		return &NumberInput{}
	case KindSelectbox:
		return &Selectbox{}
	case KindMultiSelect:
		return &MultiSelect{}
	case KindCheckbox:
		return &Checkbox{}
	case KindCheckboxGroup:
		return &CheckboxGroup{}
	case KindRadio:
		return &Radio{}
	case KindDateInput:
		return &DateInput{}
	case KindDateTimeInput:
		return &DateTimeInput{}
	case KindTimeInput:
		return &TimeInput{}
	case KindTextArea:
		return &TextArea{}
	case KindTable:
		return &Table{}
	case KindButton:
		return &Button{}
	case KindMarkdown:
		return &Markdown{}
	case KindColumns:
		return &Columns{}
	case KindColumnItem:
		return &ColumnItem{}
	case KindForm:
		return &Form{}
	}
	return nil
}
