package graphql

// apiError carries the status code and structured payload the client
// receives in the error envelope's extensions, alongside the message.
type apiError struct {
	message string
	status  int
	data    any
}

func (e *apiError) Error() string { return e.message }

// Extensions satisfies gqlerrors.ExtendedError so formatted errors come
// out as {message, extensions: {status, data}}.
func (e *apiError) Extensions() map[string]interface{} {
	ext := map[string]interface{}{"status": e.status}
	if e.data != nil {
		ext["data"] = e.data
	}
	return ext
}
