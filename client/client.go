// Package client provides a Go client for the roomplan reservation server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	BaseURL  string
	HTTP     *http.Client
	APIKey   string
	UserID   string
	Building string
}

type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.APIKey = strings.TrimSpace(key)
	}
}

func WithUserID(userID string) Option {
	return func(c *Client) {
		c.UserID = strings.TrimSpace(userID)
	}
}

func WithBuilding(building string) Option {
	return func(c *Client) {
		c.Building = strings.TrimSpace(building)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.HTTP = httpClient
		}
	}
}

// Reservation mirrors the server's reservation record.
type Reservation struct {
	ID           string    `json:"id,omitempty"`
	RoomID       string    `json:"room_id"`
	BuildingID   string    `json:"building_id,omitempty"`
	OwnerID      string    `json:"owner_id"`
	Title        string    `json:"title,omitempty"`
	Participants []string  `json:"participants,omitempty"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Status       string    `json:"status,omitempty"`
	QueueRank    int       `json:"queue_rank,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Offer is a pending waiting-queue position returned when a slot is taken.
type Offer struct {
	Candidate Reservation `json:"candidate"`
	Rank      int         `json:"rank"`
	Message   string      `json:"message,omitempty"`
}

// Outcome is the result of a create, update or move call. Exactly one of
// Reservation or Offer is set.
type Outcome struct {
	Reservation *Reservation `json:"reservation,omitempty"`
	Offer       *Offer       `json:"offer,omitempty"`
}

// Committed reports whether the call stored a reservation immediately.
func (o Outcome) Committed() bool {
	return o.Reservation != nil
}

// Availability describes a candidate slot's queue position.
type Availability struct {
	Rank    int    `json:"rank"`
	Message string `json:"message"`
}

// Free reports whether the probed slot has no active conflicts.
func (a Availability) Free() bool {
	return a.Rank == 1
}

// Changes is a partial update for an existing reservation. Nil fields are
// left unchanged.
type Changes struct {
	Title        *string    `json:"title,omitempty"`
	Start        *time.Time `json:"start,omitempty"`
	End          *time.Time `json:"end,omitempty"`
	Status       *string    `json:"status,omitempty"`
	Participants []string   `json:"participants,omitempty"`
}

type listResponse struct {
	Reservations []Reservation `json:"reservations"`
}

type resolveResponse struct {
	Committed   bool         `json:"committed"`
	Reservation *Reservation `json:"reservation,omitempty"`
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateReservation books a slot. When the slot is taken the returned
// Outcome carries an Offer instead of a committed reservation; pass it to
// ResolveOffer with the user's decision.
func (c *Client) CreateReservation(ctx context.Context, res Reservation) (Outcome, error) {
	if res.BuildingID == "" {
		res.BuildingID = c.Building
	}
	resp, err := c.postJSON(ctx, "/api/reservations", res)
	if err != nil {
		return Outcome{}, err
	}
	defer resp.Body.Close()
	return decodeOutcome(resp, http.StatusCreated)
}

func (c *Client) GetReservation(ctx context.Context, id string) (Reservation, error) {
	resp, err := c.get(ctx, "/api/reservations/"+url.PathEscape(id))
	if err != nil {
		return Reservation{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Reservation{}, statusError("get", resp)
	}
	var out Reservation
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Reservation{}, err
	}
	return out, nil
}

// ListReservations returns reservations, optionally filtered by room and
// building. Empty strings skip the filter.
func (c *Client) ListReservations(ctx context.Context, room, building string) ([]Reservation, error) {
	values := url.Values{}
	if room != "" {
		values.Set("room", room)
	}
	if building == "" {
		building = c.Building
	}
	if building != "" {
		values.Set("building", building)
	}
	endpoint := "/api/reservations"
	if len(values) > 0 {
		endpoint += "?" + values.Encode()
	}
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("list", resp)
	}
	var out listResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Reservations, nil
}

// UpdateReservation applies a partial update. Rescheduling may demote the
// reservation to an offer when the new slot is taken.
func (c *Client) UpdateReservation(ctx context.Context, id string, changes Changes) (Outcome, error) {
	resp, err := c.doJSON(ctx, http.MethodPut, "/api/reservations/"+url.PathEscape(id), changes)
	if err != nil {
		return Outcome{}, err
	}
	defer resp.Body.Close()
	return decodeOutcome(resp, http.StatusOK)
}

// MoveReservation reschedules a reservation to a new interval.
func (c *Client) MoveReservation(ctx context.Context, id string, start, end time.Time) (Outcome, error) {
	payload := map[string]time.Time{"start": start, "end": end}
	resp, err := c.postJSON(ctx, "/api/reservations/"+url.PathEscape(id)+"/move", payload)
	if err != nil {
		return Outcome{}, err
	}
	defer resp.Body.Close()
	return decodeOutcome(resp, http.StatusOK)
}

// ResolveOffer answers a queue-position offer. On accept the returned
// reservation is committed at the offered rank; on decline nil is returned
// and nothing is stored.
func (c *Client) ResolveOffer(ctx context.Context, offer Offer, accept bool) (*Reservation, error) {
	payload := map[string]any{"offer": offer, "accept": accept}
	resp, err := c.postJSON(ctx, "/api/reservations/offer", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("resolve offer", resp)
	}
	var out resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if !out.Committed {
		return nil, nil
	}
	return out.Reservation, nil
}

func (c *Client) DeleteReservation(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.BaseURL+"/api/reservations/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	c.applyHeaders(req)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError("delete", resp)
	}
	return nil
}

// CheckAvailability probes a slot without booking it.
func (c *Client) CheckAvailability(ctx context.Context, room string, start, end time.Time) (Availability, error) {
	values := url.Values{}
	values.Set("room", room)
	values.Set("start", start.Format(time.RFC3339))
	values.Set("end", end.Format(time.RFC3339))
	resp, err := c.get(ctx, "/api/availability?"+values.Encode())
	if err != nil {
		return Availability{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Availability{}, statusError("availability", resp)
	}
	var out Availability
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Availability{}, err
	}
	return out, nil
}

// decodeOutcome distinguishes a committed reservation from a queue offer.
// Commits answer with the reservation object itself, offers with an
// {"offer": ...} wrapper, so the payload shape decides.
func decodeOutcome(resp *http.Response, commitStatus int) (Outcome, error) {
	if resp.StatusCode != commitStatus && resp.StatusCode != http.StatusOK {
		return Outcome{}, statusError("book", resp)
	}
	var raw struct {
		Offer *Offer `json:"offer"`
		Reservation
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Outcome{}, err
	}
	if raw.Offer != nil {
		return Outcome{Offer: raw.Offer}, nil
	}
	if raw.Reservation.ID == "" {
		return Outcome{}, fmt.Errorf("unexpected empty response")
	}
	res := raw.Reservation
	return Outcome{Reservation: &res}, nil
}

func statusError(verb string, resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("%s failed: %d: %s", verb, resp.StatusCode, body.Error)
	}
	return fmt.Errorf("%s failed: %d", verb, resp.StatusCode)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	return c.doJSON(ctx, http.MethodPost, path, payload)
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	c.applyHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	return c.HTTP.Do(req)
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	c.applyHeaders(req)
	return c.HTTP.Do(req)
}

func (c *Client) applyHeaders(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	if c.UserID != "" {
		req.Header.Set("X-User-ID", c.UserID)
	}
}
