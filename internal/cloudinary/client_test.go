package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BattermanZ/Gastropath/internal/domain"
)

var testCreds = Credentials{CloudName: "demo", APIKey: "api-key", APISecret: "s3cret"}

func fixedClock(ts int64) func() time.Time {
	return func() time.Time { return time.Unix(ts, 0) }
}

func TestUpload_SignedMultipartRequest(t *testing.T) {
	const ts = int64(1736000000)
	image := []byte("jpeg-bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1_1/demo/image/upload" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart form: %v", err)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("file part missing: %v", err)
		}
		defer f.Close()
		if hdr.Filename != "photo.jpg" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		got, _ := io.ReadAll(f)
		if string(got) != string(image) {
			t.Errorf("file bytes = %q", got)
		}
		if v := r.FormValue("api_key"); v != "api-key" {
			t.Errorf("api_key = %q", v)
		}
		if v := r.FormValue("timestamp"); v != fmt.Sprint(ts) {
			t.Errorf("timestamp = %q", v)
		}
		sum := sha1.Sum([]byte(fmt.Sprintf("timestamp=%d%s", ts, testCreds.APISecret)))
		if v := r.FormValue("signature"); v != hex.EncodeToString(sum[:]) {
			t.Errorf("signature = %q", v)
		}
		fmt.Fprint(w, `{"secure_url":"https://res.cloudinary.com/demo/image/upload/abc.jpg"}`)
	}))
	defer srv.Close()

	c := New(testCreds, time.Second, WithBaseURL(srv.URL), WithClock(fixedClock(ts)))
	got, err := c.Upload(context.Background(), image)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if got != "https://res.cloudinary.com/demo/image/upload/abc.jpg" {
		t.Fatalf("url = %q", got)
	}
}

func TestUpload_ServerErrorIsImagePublishFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"upload preset broken"}}`)
	}))
	defer srv.Close()

	c := New(testCreds, time.Second, WithBaseURL(srv.URL))
	_, err := c.Upload(context.Background(), []byte("x"))
	if !domain.IsKind(err, domain.KindImagePublishFailed) {
		t.Fatalf("kind = %s, want %s", domain.KindOf(err), domain.KindImagePublishFailed)
	}
}

func TestUpload_EmptyPayloadRejected(t *testing.T) {
	c := New(testCreds, time.Second, WithBaseURL("http://127.0.0.1:0"))
	_, err := c.Upload(context.Background(), nil)
	if !domain.IsKind(err, domain.KindImagePublishFailed) {
		t.Fatalf("kind = %s, want %s", domain.KindOf(err), domain.KindImagePublishFailed)
	}
}

func TestUpload_MissingSecureURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c := New(testCreds, time.Second, WithBaseURL(srv.URL))
	_, err := c.Upload(context.Background(), []byte("x"))
	if !domain.IsKind(err, domain.KindImagePublishFailed) {
		t.Fatalf("kind = %s, want %s", domain.KindOf(err), domain.KindImagePublishFailed)
	}
}
