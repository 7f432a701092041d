package httpapi

import "net/http"

// NewRouter wires the reservation endpoints, the availability probe and the
// websocket feed behind the given middleware.
func NewRouter(svc *Service, wsHandler http.Handler, mw func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	wrap := func(h http.HandlerFunc) http.Handler {
		handler := http.Handler(h)
		if mw != nil {
			handler = mw(handler)
		}
		return handler
	}

	mux.Handle("/api/reservations", wrap(svc.handleReservations))
	mux.Handle("/api/reservations/offer", wrap(svc.resolveOffer))
	mux.Handle("/api/reservations/", wrap(svc.handleReservationByID))
	mux.Handle("/api/availability", wrap(svc.checkAvailability))

	if wsHandler != nil {
		if mw != nil {
			mux.Handle("/ws/rooms/", mw(wsHandler))
		} else {
			mux.Handle("/ws/rooms/", wsHandler)
		}
	}

	return mux
}
