package widget

// Visitor is implemented by every consumer that must handle all variants.
// Adding a variant adds a method here, which breaks every incomplete implementation.
type Visitor interface {
	VisitTextInput(*TextInput)
	VisitTextArea(*TextArea)
	VisitNumberInput(*NumberInput)
	VisitDateInput(*DateInput)
	VisitDateTimeInput(*DateTimeInput)
	VisitTimeInput(*TimeInput)
	VisitSelectbox(*Selectbox)
	VisitMultiSelect(*MultiSelect)
	VisitRadio(*Radio)
	VisitCheckbox(*Checkbox)
	VisitCheckboxGroup(*CheckboxGroup)
	VisitButton(*Button)
	VisitMarkdown(*Markdown)
	VisitTable(*Table)
	VisitColumns(*Columns)
	VisitColumnItem(*ColumnItem)
	VisitForm(*Form)
}

func (c *TextInput) Accept(v Visitor)     { v.VisitTextInput(c) }
func (c *TextArea) Accept(v Visitor)      { v.VisitTextArea(c) }
func (c *NumberInput) Accept(v Visitor)   { v.VisitNumberInput(c) }
func (c *DateInput) Accept(v Visitor)     { v.VisitDateInput(c) }
func (c *DateTimeInput) Accept(v Visitor) { v.VisitDateTimeInput(c) }
func (c *TimeInput) Accept(v Visitor)     { v.VisitTimeInput(c) }
func (c *Selectbox) Accept(v Visitor)     { v.VisitSelectbox(c) }
func (c *MultiSelect) Accept(v Visitor)   { v.VisitMultiSelect(c) }
func (c *Radio) Accept(v Visitor)         { v.VisitRadio(c) }
func (c *Checkbox) Accept(v Visitor)      { v.VisitCheckbox(c) }
func (c *CheckboxGroup) Accept(v Visitor) { v.VisitCheckboxGroup(c) }
func (c *Button) Accept(v Visitor)        { v.VisitButton(c) }
func (c *Markdown) Accept(v Visitor)      { v.VisitMarkdown(c) }
func (c *Table) Accept(v Visitor)         { v.VisitTable(c) }
func (c *Columns) Accept(v Visitor)       { v.VisitColumns(c) }
func (c *ColumnItem) Accept(v Visitor)    { v.VisitColumnItem(c) }
func (c *Form) Accept(v Visitor)          { v.VisitForm(c) }
