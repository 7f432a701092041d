package httpapi

import "github.com/mistakeknot/roomplan/internal/booking"

// Service exposes the booking manager over HTTP. The manager owns all
// scheduling logic; handlers only decode requests, enforce ownership and
// translate errors to status codes.
type Service struct {
	mgr *booking.Manager
}

func NewService(mgr *booking.Manager) *Service {
	return &Service{mgr: mgr}
}
