package mail

// EmailData feeds every template.
type EmailData struct {
	Name        string
	Program     string
	Intro       string
	PaymentLink string
	ReplyLink   string
	PixelURL    string
}

// Message is a rendered email ready for a transport.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}
