package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	language "github.com/hanpama/permgraph/internal/language"
)

// GraphQLRequest is one operation of a GET query string or a POST body.
type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

const errBodyTooLargeMessage = "body too large"

// parseRequest returns either a single request or a non-empty batch.
func parseRequest(r *http.Request, maxBody int64) (GraphQLRequest, []GraphQLRequest, *language.Error) {
	if r.Method == http.MethodGet {
		return parseQueryString(r)
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return GraphQLRequest{}, nil, &language.Error{Message: "unsupported Content-Type"}
	}
	defer r.Body.Close()
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return GraphQLRequest{}, nil, &language.Error{Message: "failed to read body"}
	}
	if maxBody > 0 && int64(len(body)) > maxBody {
		return GraphQLRequest{}, nil, &language.Error{Message: errBodyTooLargeMessage}
	}

	if len(body) > 0 && body[0] == '[' {
		var batch []GraphQLRequest
		if err := json.Unmarshal(body, &batch); err != nil {
			return GraphQLRequest{}, nil, &language.Error{Message: "invalid JSON"}
		}
		if len(batch) == 0 {
			return GraphQLRequest{}, nil, &language.Error{Message: "empty batch"}
		}
		return GraphQLRequest{}, batch, nil
	}

	var req GraphQLRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return GraphQLRequest{}, nil, &language.Error{Message: "invalid JSON"}
	}
	if req.Query == "" {
		return GraphQLRequest{}, nil, &language.Error{Message: "missing 'query'"}
	}
	if req.Variables == nil {
		req.Variables = map[string]any{}
	}
	return req, nil, nil
}

func parseQueryString(r *http.Request) (GraphQLRequest, []GraphQLRequest, *language.Error) {
	q := r.URL.Query()
	if q.Get("query") == "" {
		return GraphQLRequest{}, nil, &language.Error{Message: "missing 'query'"}
	}
	vars := map[string]any{}
	if v := q.Get("variables"); v != "" {
		if err := json.Unmarshal([]byte(v), &vars); err != nil {
			return GraphQLRequest{}, nil, &language.Error{Message: "invalid 'variables' JSON"}
		}
	}
	return GraphQLRequest{Query: q.Get("query"), Variables: vars, OperationName: q.Get("operationName")}, nil, nil
}
