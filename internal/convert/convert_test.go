package convert

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeService struct {
	uploaded   []byte
	uploadName string
	converted  bool
	returnCode int
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /uploadStlToServer", func(w http.ResponseWriter, r *http.Request) {
		file, hdr, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "No file part in the request"})
			return
		}
		defer file.Close()
		f.uploaded, _ = io.ReadAll(file)
		f.uploadName = hdr.Filename
		json.NewEncoder(w).Encode(map[string]string{"message": "File uploaded successfully"})
	})
	mux.HandleFunc("GET /convert", func(w http.ResponseWriter, r *http.Request) {
		f.converted = f.returnCode == 0
		json.NewEncoder(w).Encode(map[string]any{"returncode": f.returnCode, "stdout": "", "stderr": "boom"})
	})
	mux.HandleFunc("GET /download", func(w http.ResponseWriter, r *http.Request) {
		if !f.converted {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "output.step file not found"})
			return
		}
		w.Write([]byte("ISO-10303-21;\n" + string(f.uploaded)))
	})
	return mux
}

func TestConvert_RoundTrip(t *testing.T) {
	svc := &fakeService{}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	out, err := c.Convert(context.Background(), "model", []byte("solid x\nendsolid x\n"))
	require.NoError(t, err)
	require.Equal(t, "model.stl", svc.uploadName)
	require.Equal(t, "ISO-10303-21;\nsolid x\nendsolid x\n", string(out))
}

func TestConvert_NonZeroExit(t *testing.T) {
	svc := &fakeService{returnCode: 1}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Convert(context.Background(), "model.stl", []byte("solid"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "exit code 1")
	require.Contains(t, err.Error(), "boom")
}

func TestConvert_ServiceErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Invalid file type. Only .stl files are allowed"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Convert(context.Background(), "model.stl", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Invalid file type")
	require.Contains(t, err.Error(), "(400)")
}

func TestConvert_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Convert(context.Background(), "model.stl", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "request failed")
}

func TestConvert_Cancelled(t *testing.T) {
	svc := &fakeService{}
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL, time.Second).Convert(ctx, "model.stl", nil)
	require.Error(t, err)
	require.Nil(t, svc.uploaded)
}
