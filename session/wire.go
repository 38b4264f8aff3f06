// Package session implements the secure session wire shape shared by the
// client and server halves: every RPC request is an HTTP POST with a
// multipart/form-data body whose only part, named "requestData", holds a
// boss-encoded mapping; every reply is a raw boss-encoded mapping of the
// form {result: "ok"|"error", response: <inner>}.
//
// Uses a plain *http.Client with an explicit timeout rather than a
// framework, wrapped in a multipart RPC envelope.
package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/cvsouth/u8node/boss"
	"github.com/cvsouth/u8node/errs"
)

// RequestPartName is the sole multipart field name carrying the request body.
const RequestPartName = "requestData"

// EncodeRequest wraps m as a multipart/form-data body and returns the body
// bytes alongside the Content-Type header value (which carries the
// multipart boundary) to set on the outgoing request.
func EncodeRequest(m *boss.Map) (contentType string, body []byte, err error) {
	encoded, err := boss.Encode(m)
	if err != nil {
		return "", nil, fmt.Errorf("encode request: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormField(RequestPartName)
	if err != nil {
		return "", nil, fmt.Errorf("create multipart field: %w", err)
	}
	if _, err := part.Write(encoded); err != nil {
		return "", nil, fmt.Errorf("write multipart field: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", nil, fmt.Errorf("close multipart writer: %w", err)
	}
	return w.FormDataContentType(), buf.Bytes(), nil
}

// DecodeRequest extracts and decodes the requestData part of an incoming
// multipart/form-data request.
func DecodeRequest(r *http.Request) (*boss.Map, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("read multipart request: %w", err)
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read multipart part: %w", err)
		}
		if part.FormName() != RequestPartName {
			continue
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return nil, fmt.Errorf("read requestData part: %w", err)
		}
		return decodeMap(data)
	}
	return nil, fmt.Errorf("%w: request is missing the %q part", errs.ErrInvalidArgument, RequestPartName)
}

// WriteOK encodes inner as a boss mapping wrapped in {result: "ok",
// response: inner} and writes it as the HTTP 200 response body.
func WriteOK(w http.ResponseWriter, inner *boss.Map) error {
	envelope := boss.NewMap()
	envelope.Set("result", boss.String("ok"))
	envelope.Set("response", inner)
	encoded, err := boss.Encode(envelope)
	if err != nil {
		return fmt.Errorf("encode response envelope: %w", err)
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(encoded)
	return err
}

// WriteError encodes message as {result: "error", response: message} and
// writes it as an HTTP 500 response body, the shared failure envelope for
// signature/nonce/session/decryption errors.
func WriteError(w http.ResponseWriter, message string) error {
	envelope := boss.NewMap()
	envelope.Set("result", boss.String("error"))
	envelope.Set("response", boss.String(message))
	encoded, err := boss.Encode(envelope)
	if err != nil {
		return fmt.Errorf("encode error envelope: %w", err)
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusInternalServerError)
	_, err = w.Write(encoded)
	return err
}

// DecodeResponse reads and unwraps a server reply, returning the inner
// mapping on result "ok" or an error carrying the server's message string
// on result "error".
func DecodeResponse(resp *http.Response) (*boss.Map, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	envelope, err := decodeMap(body)
	if err != nil {
		return nil, err
	}
	resultVal, _ := envelope.Get("result")
	responseVal, _ := envelope.Get("response")

	result, _ := resultVal.(boss.String)
	if string(result) != "ok" {
		if msg, ok := responseVal.(boss.String); ok {
			return nil, fmt.Errorf("%w: %s", errs.ErrSessionRequestFailed, string(msg))
		}
		return nil, fmt.Errorf("%w: server reported an error", errs.ErrSessionRequestFailed)
	}
	inner, ok := responseVal.(*boss.Map)
	if !ok {
		return nil, fmt.Errorf("%w: response field is not a mapping", errs.ErrDecoding)
	}
	return inner, nil
}

func decodeMap(data []byte) (*boss.Map, error) {
	v, err := boss.DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrDecoding, err)
	}
	m, ok := v.(*boss.Map)
	if !ok {
		return nil, fmt.Errorf("%w: expected a mapping at the top level", errs.ErrDecoding)
	}
	return m, nil
}

// Post sends a multipart-encoded RPC request to url and returns the decoded
// inner response mapping.
func Post(ctx context.Context, client *http.Client, url string, req *boss.Map) (*boss.Map, error) {
	contentType, body, err := EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request to %s: %w", url, err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	return DecodeResponse(resp)
}
