package handlers

import (
	"html/template"
	"net/http"
)

// 1x1 transparent GIF
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; max-width: 600px; margin: 50px auto; padding: 20px; }
    .container { background: #f9f9f9; padding: 30px; border-radius: 10px; text-align: center; }
  </style>
</head>
<body>
  <div class="container">
    <h1>{{.Title}}</h1>
    <p>{{.Body}}</p>
  </div>
</body>
</html>`))

type page struct {
	Title string
	Body  string
}

var (
	replyPage         = page{"Reply Received", "Your reply has been recorded and our team will get back to you soon."}
	paymentOKPage     = page{"Payment Successful", "You're now enrolled. A welcome email with next steps is on its way."}
	paymentFailedPage = page{"Payment Not Completed", "Your payment did not go through. You can try again from the link in your email."}
)

func writePage(w http.ResponseWriter, status int, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	pageTmpl.Execute(w, p)
}

func writePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	w.Write(pixelGIF)
}
