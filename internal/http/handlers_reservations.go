package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mistakeknot/roomplan/internal/auth"
	"github.com/mistakeknot/roomplan/internal/booking"
	"github.com/mistakeknot/roomplan/internal/core"
)

type reservationRequest struct {
	RoomID       string    `json:"room_id"`
	BuildingID   string    `json:"building_id"`
	OwnerID      string    `json:"owner_id"`
	Title        string    `json:"title"`
	Participants []string  `json:"participants"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
}

type updateRequest struct {
	Title        *string      `json:"title"`
	Start        *time.Time   `json:"start"`
	End          *time.Time   `json:"end"`
	Status       *core.Status `json:"status"`
	Participants []string     `json:"participants"`
}

type moveRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type resolveOfferRequest struct {
	Offer  core.Offer `json:"offer"`
	Accept bool       `json:"accept"`
}

type reservationsResponse struct {
	Reservations []core.Reservation `json:"reservations"`
}

func (s *Service) handleReservations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listReservations(w, r)
	case http.MethodPost:
		s.createReservation(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Service) handleReservationByID(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/reservations/"), "/")
	if path == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if id, ok := strings.CutSuffix(path, "/move"); ok {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.moveReservation(w, r, strings.Trim(id, "/"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.getReservation(w, r, path)
	case http.MethodPut:
		s.updateReservation(w, r, path)
	case http.MethodDelete:
		s.deleteReservation(w, r, path)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Service) createReservation(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if req.RoomID == "" || req.OwnerID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	info, _ := auth.FromContext(r.Context())
	if info.Mode == auth.ModeAPIKey && req.BuildingID != info.Building {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	outcome, err := s.mgr.Create(r.Context(), core.Reservation{
		RoomID:       req.RoomID,
		BuildingID:   req.BuildingID,
		OwnerID:      req.OwnerID,
		Title:        req.Title,
		Participants: req.Participants,
		Start:        req.Start,
		End:          req.End,
	})
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeOutcome(w, outcome, http.StatusCreated)
}

func (s *Service) getReservation(w http.ResponseWriter, r *http.Request, id string) {
	res, err := s.mgr.Get(r.Context(), id)
	if err != nil {
		writeBookingError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

func (s *Service) listReservations(w http.ResponseWriter, r *http.Request) {
	info, _ := auth.FromContext(r.Context())
	building := r.URL.Query().Get("building")
	if building == "" {
		building = info.Building
	}
	room := r.URL.Query().Get("room")

	reservations, err := s.mgr.List(r.Context(), room, building)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if reservations == nil {
		reservations = []core.Reservation{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reservationsResponse{Reservations: reservations})
}

func (s *Service) updateReservation(w http.ResponseWriter, r *http.Request, id string) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if !s.authorizeOwner(w, r, id) {
		return
	}
	outcome, err := s.mgr.Update(r.Context(), id, booking.Changes{
		Title:        req.Title,
		Start:        req.Start,
		End:          req.End,
		Status:       req.Status,
		Participants: req.Participants,
	})
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeOutcome(w, outcome, http.StatusOK)
}

func (s *Service) moveReservation(w http.ResponseWriter, r *http.Request, id string) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if !s.authorizeOwner(w, r, id) {
		return
	}
	outcome, err := s.mgr.Move(r.Context(), id, req.Start, req.End)
	if err != nil {
		writeBookingError(w, err)
		return
	}
	writeOutcome(w, outcome, http.StatusOK)
}

func (s *Service) deleteReservation(w http.ResponseWriter, r *http.Request, id string) {
	if !s.authorizeOwner(w, r, id) {
		return
	}
	if _, err := s.mgr.Delete(r.Context(), id); err != nil {
		writeBookingError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Service) resolveOffer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req resolveOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if req.Offer.Candidate.RoomID == "" || req.Offer.Rank < 2 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	committed, err := s.mgr.ResolveOffer(r.Context(), req.Offer, req.Accept)
	if err != nil {
		writeBookingError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if committed == nil {
		// Declined: nothing was committed, the caller collects a new
		// interval from the user and submits it as a fresh request.
		_ = json.NewEncoder(w).Encode(map[string]any{"committed": false})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"committed": true, "reservation": committed})
}

func (s *Service) checkAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	room := q.Get("room")
	if room == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	start, err1 := time.Parse(time.RFC3339, q.Get("start"))
	end, err2 := time.Parse(time.RFC3339, q.Get("end"))
	if err1 != nil || err2 != nil || !start.Before(end) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	avail, err := s.mgr.Availability(r.Context(), booking.Candidate{
		RoomID:    room,
		Start:     start,
		End:       end,
		ExcludeID: q.Get("exclude"),
	})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(avail)
}

// authorizeOwner enforces the owner-or-admin rule for mutating calls.
// A localhost request without an identity header is trusted (dev mode).
func (s *Service) authorizeOwner(w http.ResponseWriter, r *http.Request, id string) bool {
	info, _ := auth.FromContext(r.Context())
	if info.Admin || (info.Localhost && info.UserID == "") {
		return true
	}
	res, err := s.mgr.Get(r.Context(), id)
	if err != nil {
		writeBookingError(w, err)
		return false
	}
	if res.OwnerID != info.UserID {
		w.WriteHeader(http.StatusForbidden)
		return false
	}
	return true
}

// writeOutcome renders a commit-or-offer result. A commit answers with the
// stored reservation; an offer answers 200 with the pending decision.
func writeOutcome(w http.ResponseWriter, outcome booking.Outcome, commitStatus int) {
	w.Header().Set("Content-Type", "application/json")
	if !outcome.Committed() {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"offer": outcome.Offer})
		return
	}
	w.WriteHeader(commitStatus)
	_ = json.NewEncoder(w).Encode(outcome.Reservation)
}

func writeBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, core.ErrPastDated), errors.Is(err, core.ErrInvalidInterval):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
	case errors.Is(err, core.ErrInvalidTransition):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
	case errors.Is(err, core.ErrUnauthorized):
		w.WriteHeader(http.StatusForbidden)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
}
