package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// maxRequestBody caps the request body size for both protobuf and JSON
// payloads.  Input bodies carry one symbol or one UID.
const maxRequestBody = 4096

const protobufContentType = "application/x-protobuf"

// isProtobuf returns true if the request's Content-Type indicates a
// protobuf payload.
func isProtobuf(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return ct == protobufContentType ||
		ct == "application/protobuf" ||
		ct == "application/octet-stream"
}

// readBody decodes a JSON object, or a google.protobuf.Struct when the
// request is protobuf, into a plain map.
func readBody(r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return nil, err
	}

	if isProtobuf(r) {
		var st structpb.Struct
		if err := proto.Unmarshal(body, &st); err != nil {
			return nil, err
		}
		return st.AsMap(), nil
	}

	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// writeBody answers in the request's encoding.
func writeBody(w http.ResponseWriter, r *http.Request, status int, body map[string]any) {
	if isProtobuf(r) {
		st, err := structpb.NewStruct(body)
		if err != nil {
			http.Error(w, "proto encode error", http.StatusInternalServerError)
			return
		}
		writeProto(w, status, st)
		return
	}
	writeJSON(w, status, body)
}

// writeProto marshals msg and writes it with the given HTTP status.
func writeProto(w http.ResponseWriter, status int, msg proto.Message) {
	data, err := proto.Marshal(msg)
	if err != nil {
		// Fall back to a plain-text error if marshalling fails.
		http.Error(w, "proto marshal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", protobufContentType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeBody(w, r, status, map[string]any{"error": code, "message": msg})
}
