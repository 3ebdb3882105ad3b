package mail

import (
	"net/url"

	"github.com/google/uuid"
)

// Links builds the tracked URLs embedded in every message. Each URL gets its
// own tracking id.
type Links struct {
	baseURL    string
	paymentURL string
}

func NewLinks(baseURL, paymentURL string) Links {
	return Links{baseURL: baseURL, paymentURL: paymentURL}
}

func (l Links) Pixel(email string) string {
	return l.build("/api/tracking/pixel/", url.Values{"email": {email}})
}

func (l Links) Link(email, destination string) string {
	return l.build("/api/tracking/link/", url.Values{"email": {email}, "url": {destination}})
}

// Payment is Link pointed at the configured payment page.
func (l Links) Payment(email string) string {
	return l.Link(email, l.paymentURL)
}

func (l Links) Reply(email string) string {
	return l.build("/api/tracking/reply/", url.Values{"email": {email}})
}

func (l Links) build(path string, q url.Values) string {
	return l.baseURL + path + uuid.NewString() + "?" + q.Encode()
}
