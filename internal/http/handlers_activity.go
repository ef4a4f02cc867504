package httpx

import (
	"net/http"

	"github.com/terralink-energy/portal-api/internal/service"
)

// ActivityHandlers provides usage tracking endpoints.
type ActivityHandlers struct {
	Svc *service.ActivityService
}

type trackRequest struct {
	AppID    string         `json:"appId"`
	Action   string         `json:"action"`
	Metadata map[string]any `json:"metadata"`
}

// Track handles POST /activity/track. Any authenticated user may record
// their own usage; the identity comes from the session, never the body.
func (h *ActivityHandlers) Track(w http.ResponseWriter, r *http.Request) {
	sess, ok := GetSessionFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_required", Err: errAuthRequired})
		return
	}

	var req trackRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	err := h.Svc.Track(r.Context(), service.TrackInput{
		User:     sess.User,
		AppID:    req.AppID,
		Action:   req.Action,
		Metadata: req.Metadata,
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

// Query handles GET /admin/activity?email=&limit=&filter=. The filter is an
// optional JMESPath expression evaluated over the record list.
func (h *ActivityHandlers) Query(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.Svc.Query(r.Context(), service.QueryInput{
		Email:  q.Get("email"),
		Limit:  parseIntQuery(r, "limit", 100),
		Filter: q.Get("filter"),
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"activity": out})
}
