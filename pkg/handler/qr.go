package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

// QR renders a PNG QR code of the join link for a session.
func (h *HTTP) QR(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	png, err := h.renderQR(h.joinURL(r, id))
	if err != nil {
		logrus.Errorf("qr generation for session %s failed: %v", id, err)
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// renderQR encodes link as a PNG. The output only depends on link, so
// concurrent requests for one session share a single encode.
func (h *HTTP) renderQR(link string) ([]byte, error) {
	v, err, _ := h.qr.Do(link, func() (interface{}, error) {
		return qrcode.Encode(link, qrcode.Medium, qrSize)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (h *HTTP) joinURL(r *http.Request, id string) string {
	base := h.baseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/?code=" + url.QueryEscape(id)
}
