package admins

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"yanfarm/logger"
	"yanfarm/storage"
	"yanfarm/utils"

	"go.uber.org/zap"
)

type reviewRequest struct {
	Comment string `json:"comment"`
}

// readComment decodes the optional {"comment": "..."} body of a reject call.
// An empty body means no comment.
func readComment(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req reviewRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return "", false
	}
	comment := strings.TrimSpace(req.Comment)
	if len(comment) > 1000 {
		utils.WriteError(w, http.StatusBadRequest, "comment must be at most 1000 characters")
		return "", false
	}
	return comment, true
}

// statusFilter returns the ?status= query value. "all" and an empty value
// mean no filter; anything parse rejects is a 400.
func statusFilter[S ~string](w http.ResponseWriter, r *http.Request, def S, parse func(string) (S, bool)) (S, bool) {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))
	switch raw {
	case "":
		return def, true
	case "all":
		return "", true
	}
	st, ok := parse(raw)
	if !ok {
		utils.WriteError(w, http.StatusBadRequest, "Unknown status "+raw)
	}
	return st, ok
}

// objectURLs turns stored object names into links the console can open.
// Names that cannot be resolved are returned unchanged.
func objectURLs(ctx context.Context, names []string) []string {
	urls := make([]string, 0, len(names))
	for _, name := range names {
		if storage.Proofs == nil {
			urls = append(urls, name)
			continue
		}
		u, err := storage.Proofs.URL(ctx, name)
		if err != nil {
			logger.Warn("cannot resolve object URL", zap.String("name", name), zap.Error(err))
			u = name
		}
		urls = append(urls, u)
	}
	return urls
}
