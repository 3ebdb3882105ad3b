package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"text/template"

	"github.com/xavierca1/lead-funnel/internal/entity"
)

//go:embed templates/*
var templateFS embed.FS

type kindCopy struct {
	subject string
	file    string
	intro   string
}

var copies = map[entity.MessageKind]kindCopy{
	entity.KindConfirmation: {
		subject: "Welcome to %s - Complete Your Registration",
		file:    "templates/confirmation.html",
		intro:   "Thank you for applying. Your spot is reserved until you complete payment.",
	},
	entity.KindReminder1: {
		subject: "Reminder: Complete Your %s Registration",
		file:    "templates/reminder1.html",
		intro:   "Your registration is not complete yet and spots are limited.",
	},
	entity.KindReminder2: {
		subject: "%s: Benefits You Can't Miss",
		file:    "templates/reminder2.html",
		intro:   "Mentorship, real projects and a lifetime alumni network are waiting for you.",
	},
	entity.KindFinalReminder: {
		subject: "Final Notice: Your %s Spot is Expiring",
		file:    "templates/final.html",
		intro:   "This is your last chance to join this cohort.",
	},
}

// Renderer turns a lead and a message kind into a Message.
type Renderer struct {
	program string
	links   Links
	html    map[entity.MessageKind]*htmltemplate.Template
	text    *template.Template
}

func NewRenderer(program string, links Links) (*Renderer, error) {
	r := &Renderer{
		program: program,
		links:   links,
		html:    make(map[entity.MessageKind]*htmltemplate.Template, len(copies)),
	}

	for kind, c := range copies {
		t, err := htmltemplate.ParseFS(templateFS, "templates/layout.html", c.file)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", kind, err)
		}
		r.html[kind] = t
	}

	text, err := template.ParseFS(templateFS, "templates/plain.txt")
	if err != nil {
		return nil, fmt.Errorf("parse plain template: %w", err)
	}
	r.text = text
	return r, nil
}

func (r *Renderer) Render(lead *entity.Lead, kind entity.MessageKind) (Message, error) {
	c, ok := copies[kind]
	if !ok {
		return Message{}, fmt.Errorf("no template for %q", kind)
	}

	data := EmailData{
		Name:        lead.Name,
		Program:     r.program,
		Intro:       c.intro,
		PaymentLink: r.links.Payment(lead.Email),
		ReplyLink:   r.links.Reply(lead.Email),
		PixelURL:    r.links.Pixel(lead.Email),
	}

	var html, text bytes.Buffer
	if err := r.html[kind].ExecuteTemplate(&html, "layout.html", data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", kind, err)
	}
	if err := r.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", kind, err)
	}

	return Message{
		To:      lead.Email,
		ToName:  lead.Name,
		Subject: fmt.Sprintf(c.subject, r.program),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
