package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxResponseSize caps how much of a protected response is returned.
const maxResponseSize = 1 << 20

// Response is a protected API reply.
type Response struct {
	Status int
	Body   []byte
}

// APIService performs authenticated calls against the protected API. The
// http.Client it is built with is expected to carry a refresh.Transport.
type APIService interface {
	Get(ctx context.Context, path string) (*Response, error)
}

type apiService struct {
	baseURL string
	hc      *http.Client
}

func NewAPIService(baseURL string, hc *http.Client) APIService {
	return &apiService{baseURL: strings.TrimRight(baseURL, "/"), hc: hc}
}

func (s *apiService) Get(ctx context.Context, path string) (*Response, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{Status: resp.StatusCode, Body: body}, nil
}
