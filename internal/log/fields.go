package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldUserID    = "user_id"
	FieldChatID    = "chat_id"
	FieldEvent     = "event"
	FieldState     = "state"
	FieldNextState = "next_state"
	FieldDate      = "date"
	FieldOutflow   = "outflow"
	FieldInflow    = "inflow"
	FieldCategory  = "category"
	FieldAccount   = "account"
	FieldSheetsRef = "sheets_ref"
	FieldDuration  = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp          = "app"
	ComponentConversation = "conversation"
	ComponentDispatch     = "dispatch"
	ComponentTelegram     = "telegram"
	ComponentWorker       = "worker"
	ComponentCache        = "cache"
	ComponentBackend      = "backend"
)

// Operations defines standard operation names
const (
	OpDispatch = "dispatch"
	OpSubmit   = "submit"
	OpPublish  = "publish"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithSender adds the user and chat of an event
func (f LogFields) WithSender(userID, chatID int64) LogFields {
	f[FieldUserID] = userID
	f[FieldChatID] = chatID
	return f
}

// WithTransition adds the event kind and the states around it
func (f LogFields) WithTransition(event, from, to string) LogFields {
	f[FieldEvent] = event
	f[FieldState] = from
	f[FieldNextState] = to
	return f
}

// WithTransaction adds the identifying columns of a submitted row
func (f LogFields) WithTransaction(date, outflow, inflow, category, account string) LogFields {
	f[FieldDate] = date
	f[FieldOutflow] = outflow
	f[FieldInflow] = inflow
	f[FieldCategory] = category
	f[FieldAccount] = account
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
