package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ClaireAgaba/informal-system-sub000/internal/enrollment"
	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// composeWriteWait bounds a single write to the client
const composeWriteWait = 10 * time.Second

// Compose message types sent by the client
const (
	ComposeCategory = "category"
	ComposeLevel    = "level"
	ComposeModules  = "modules"
	ComposePapers   = "papers"
	ComposeCount    = "count"
	ComposeReload   = "reload"
	ComposeSubmit   = "submit"
)

// ComposeMessage is an edit sent by the client over the compose websocket
type ComposeMessage struct {
	Type           string                      `json:"type"`
	Category       models.RegistrationCategory `json:"category,omitempty"`
	LevelID        string                      `json:"occupation_level,omitempty"`
	ModuleIDs      []string                    `json:"modules,omitempty"`
	PaperIDs       []string                    `json:"papers,omitempty"`
	CandidateCount int                         `json:"candidate_count,omitempty"`
	SeriesID       string                      `json:"assessment_series,omitempty"`
}

// ComposeUpdate is sent to the client after every message. Composition and
// Fee are set only when the state is valid.
type ComposeUpdate struct {
	Type        string                    `json:"type"` // connected, state, enrolled, error
	State       enrollment.State          `json:"state,omitempty"`
	Selection   *models.Selection         `json:"selection,omitempty"`
	Options     *models.EnrollmentOptions `json:"options,omitempty"`
	Composition *models.Composition       `json:"composition,omitempty"`
	Fee         *apd.Decimal              `json:"fee,omitempty"`
	Enrollment  *models.Enrollment        `json:"enrollment,omitempty"`
	Error       *apiError                 `json:"error,omitempty"`
}

// handleComposeWS runs an enrollment interaction for one candidate. Every
// edit is validated and priced immediately; submit enrolls the composition
// the client last saw as valid.
func (s *Server) handleComposeWS(w http.ResponseWriter, r *http.Request) {
	candidateID := chi.URLParam(r, "id")
	ctx := r.Context()

	opts, err := s.service.Options(ctx, candidateID)
	if err != nil {
		respondServiceError(w, r, "get enrollment options", err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()
	// the server read timeout applies to the upgrade request only
	conn.SetReadDeadline(time.Time{})

	slog.Info("compose websocket connected", "candidate_id", candidateID, "client", actor(ctx))

	in := enrollment.NewInteraction()
	in.LoadOptions(opts)
	if err := in.SelectCategory(opts.RegistrationCategory); err != nil {
		s.sendComposeError(conn, err)
		return
	}

	connected := stateUpdate(in)
	connected.Type = "connected"
	connected.Options = opts
	if err := s.sendComposeUpdate(conn, connected); err != nil {
		return
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "error", err)
			}
			break
		}

		var msg ComposeMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Debug("invalid message format", "error", err)
			s.sendComposeUpdate(conn, ComposeUpdate{
				Type:  "error",
				Error: &apiError{Code: "invalid_request", Message: "invalid message format"},
			})
			continue
		}

		var update ComposeUpdate
		switch msg.Type {
		case ComposeSubmit:
			update = s.submitComposition(r, in, candidateID, msg.SeriesID)
		case ComposeReload:
			fresh, err := s.service.Options(ctx, candidateID)
			if err != nil {
				update = errorUpdate(err)
				break
			}
			in.LoadOptions(fresh)
			update = evaluate(in)
			update.Options = fresh
		default:
			if err := applyEdit(in, msg); err != nil {
				update = errorUpdate(err)
				break
			}
			update = evaluate(in)
		}

		if err := s.sendComposeUpdate(conn, update); err != nil {
			break
		}
	}

	slog.Info("compose websocket disconnected", "candidate_id", candidateID)
}

func applyEdit(in *enrollment.Interaction, msg ComposeMessage) error {
	switch msg.Type {
	case ComposeCategory:
		return in.SelectCategory(msg.Category)
	case ComposeLevel:
		return in.SetLevel(msg.LevelID)
	case ComposeModules:
		return in.SetModules(msg.ModuleIDs)
	case ComposePapers:
		return in.SetPapers(msg.PaperIDs)
	case ComposeCount:
		return in.SetCandidateCount(msg.CandidateCount)
	}
	return models.NewRuleError(models.ErrCompositionInvalid, models.ReasonNotSubmittable, in.Category(),
		"unknown message type "+msg.Type)
}

// evaluate recomputes the composition unless nothing has been chosen yet
func evaluate(in *enrollment.Interaction) ComposeUpdate {
	if in.State() == enrollment.StateIdle || in.State() == enrollment.StateCategorySelected {
		return stateUpdate(in)
	}
	in.Evaluate()
	return stateUpdate(in)
}

func (s *Server) submitComposition(r *http.Request, in *enrollment.Interaction, candidateID, seriesID string) ComposeUpdate {
	client := ClientFromContext(r.Context())
	if !client.HasPermission(models.PermEnrollmentsWrite) {
		return ComposeUpdate{
			Type:  "error",
			State: in.State(),
			Error: &apiError{Code: "permission_denied", Message: "client does not have required permission: " + models.PermEnrollmentsWrite},
		}
	}
	if seriesID == "" {
		return ComposeUpdate{
			Type:  "error",
			State: in.State(),
			Error: &apiError{Code: "validation_error", Message: "assessment_series is required"},
		}
	}

	current, err := s.service.Options(r.Context(), candidateID)
	if err != nil {
		return errorUpdate(err)
	}
	comp, _, err := in.Submission(current.CatalogVersion)
	if err != nil {
		return errorUpdate(err)
	}

	e, err := s.service.Enroll(r.Context(), candidateID, models.EnrollRequest{
		SeriesID:       seriesID,
		Selection:      in.Selection(),
		CatalogVersion: comp.CatalogVersion,
	})
	if err != nil {
		if status, _ := errorStatus(err); status >= 500 {
			slog.Error("failed to enroll from compose session", "error", err, "candidate_id", candidateID)
		}
		return errorUpdate(err)
	}

	update := stateUpdate(in)
	update.Type = "enrolled"
	update.Enrollment = e
	return update
}

func stateUpdate(in *enrollment.Interaction) ComposeUpdate {
	sel := in.Selection()
	update := ComposeUpdate{
		Type:      "state",
		State:     in.State(),
		Selection: &sel,
	}
	if in.State() == enrollment.StateValid {
		update.Composition = in.Composition()
		update.Fee = in.Fee()
	}
	if err := in.Err(); err != nil {
		_, update.Error = errorStatus(err)
	}
	return update
}

func errorUpdate(err error) ComposeUpdate {
	_, body := errorStatus(err)
	return ComposeUpdate{Type: "error", Error: body}
}

func (s *Server) sendComposeUpdate(conn *websocket.Conn, update ComposeUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		slog.Error("failed to marshal compose update", "error", err)
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(composeWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send compose update", "error", err)
		return err
	}
	return nil
}

func (s *Server) sendComposeError(conn *websocket.Conn, err error) {
	s.sendComposeUpdate(conn, errorUpdate(err))
}
