package server

import "net/http"

// Body is the payload of a Response: either JSONBody or TextBody.
type Body interface {
	isBody()
}

// JSONBody is serialized with encoding/json as application/json.
// A nil Value is written as {}.
type JSONBody struct {
	Value any
}

// TextBody is written verbatim. An empty ContentType means text/html.
type TextBody struct {
	ContentType string
	Text        string
}

func (JSONBody) isBody() {}
func (TextBody) isBody() {}

// Response is what a Handler returns. A Status outside 100..599 is sent as
// 200 and a nil Body as {}.
type Response struct {
	Status int
	Body   Body
}

// JSON builds a JSON response.
func JSON(status int, v any) Response {
	return Response{Status: status, Body: JSONBody{Value: v}}
}

// HTML builds a text/html response.
func HTML(status int, text string) Response {
	return Response{Status: status, Body: TextBody{Text: text}}
}

// Text builds a response with an arbitrary textual content type.
func Text(status int, contentType, text string) Response {
	return Response{Status: status, Body: TextBody{ContentType: contentType, Text: text}}
}

// Error builds the {"Error": msg} payload used by every failing handler.
func Error(status int, msg string) Response {
	return JSON(status, map[string]string{"Error": msg})
}

// Empty builds a response with the given status and a {} body.
func Empty(status int) Response {
	return Response{Status: status}
}

// OK is Empty(http.StatusOK).
func OK() Response {
	return Empty(http.StatusOK)
}
