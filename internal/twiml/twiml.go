// Package twiml renders the XML call-control documents returned to the
// telephony gateway. Rendering is pure: a Response is built from directive
// values and marshalled as-is, with no store or network access.
package twiml

import (
	"encoding/xml"
	"net/http"
)

// Response is one call-control document. Field order is marshal order, which
// is the order the gateway executes directives in.
type Response struct {
	XMLName  xml.Name  `xml:"Response"`
	Say      *Say      `xml:"Say,omitempty"`
	Play     *Play     `xml:"Play,omitempty"`
	Gather   *Gather   `xml:"Gather,omitempty"`
	Record   *Record   `xml:"Record,omitempty"`
	Redirect *Redirect `xml:"Redirect,omitempty"`
	Hangup   *Hangup   `xml:"Hangup,omitempty"`
}

type Say struct {
	Text string `xml:",chardata"`
}

type Play struct {
	URL string `xml:",chardata"`
}

// Gather collects a fixed number of digits and POSTs them to Action.
type Gather struct {
	NumDigits int    `xml:"numDigits,attr"`
	Action    string `xml:"action,attr"`
	Method    string `xml:"method,attr"`
	Say       *Say   `xml:"Say,omitempty"`
}

// Record captures audio until FinishOnKey and POSTs the recording reference
// to Action.
type Record struct {
	Action      string `xml:"action,attr"`
	Method      string `xml:"method,attr"`
	FinishOnKey string `xml:"finishOnKey,attr"`
}

type Redirect struct {
	Method string `xml:"method,attr"`
	URL    string `xml:",chardata"`
}

type Hangup struct{}

// SayHangup is the terminal notice document: speak once, then hang up.
func SayHangup(text string) *Response {
	return &Response{Say: &Say{Text: text}, Hangup: &Hangup{}}
}

// SayRedirect speaks a notice and re-invokes another endpoint.
func SayRedirect(text, url string) *Response {
	return &Response{
		Say:      &Say{Text: text},
		Redirect: &Redirect{Method: http.MethodPost, URL: url},
	}
}

// RedirectTo re-invokes another endpoint with no spoken notice.
func RedirectTo(url string) *Response {
	return &Response{Redirect: &Redirect{Method: http.MethodPost, URL: url}}
}

// Write marshals the document to w. The gateway expects text/xml.
func Write(w http.ResponseWriter, resp *Response) error {
	out, err := xml.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
