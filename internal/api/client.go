// Package api is a thin client for the balena API: device and fleet lookup,
// device-type manifests, supported OS versions, and device key provisioning.
//
// The pack of services this CLI talks to has no Go SDK, so the client is a
// small net/http wrapper configured from the environment.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/aniongithub/balena-cli/internal/devicetype"
)

const (
	// DefaultBaseURL is the hosted balenaCloud API endpoint.
	DefaultBaseURL = "https://api.balena-cloud.com"

	// EnvBaseURL and EnvToken configure the client from the environment.
	EnvBaseURL = "BALENA_API_URL"
	EnvToken   = "BALENA_TOKEN"
)

// ErrNotFound is returned when the API has no entity for the given
// identifier.
var ErrNotFound = errors.New("not found")

// Device is a provisioning target already bound to an application.
type Device struct {
	ID            int    `json:"id"`
	UUID          string `json:"uuid"`
	Name          string `json:"device_name"`
	DeviceType    string `json:"device_type"`
	ApplicationID int    `json:"belongs_to__application"`
}

// Application is a fleet: a provisioning target with a declared default
// device type.
type Application struct {
	ID         int    `json:"id"`
	Slug       string `json:"slug"`
	Name       string `json:"app_name"`
	DeviceType string `json:"device_type"`
}

// Client talks to one balena API endpoint.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient returns a client for baseURL authenticating with token. An empty
// baseURL uses the hosted endpoint.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientFromEnv builds a client from BALENA_API_URL and BALENA_TOKEN.
func NewClientFromEnv() *Client {
	return NewClient(os.Getenv(EnvBaseURL), os.Getenv(EnvToken))
}

// BaseURL returns the API endpoint the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetDevice fetches a device by its UUID.
func (c *Client) GetDevice(ctx context.Context, uuid string) (*Device, error) {
	var dev Device
	if err := c.getJSON(ctx, "/v6/device/"+url.PathEscape(uuid), &dev); err != nil {
		return nil, fmt.Errorf("failed to fetch device %s: %w", uuid, err)
	}
	return &dev, nil
}

// GetApplication fetches a fleet by its slug.
func (c *Client) GetApplication(ctx context.Context, slug string) (*Application, error) {
	var app Application
	path := "/v6/application?slug=" + url.QueryEscape(slug)
	if err := c.getJSON(ctx, path, &app); err != nil {
		return nil, fmt.Errorf("failed to fetch fleet %s: %w", slug, err)
	}
	return &app, nil
}

// GetDeviceTypeManifest fetches the device-type descriptor for slug.
func (c *Client) GetDeviceTypeManifest(ctx context.Context, slug string) (*devicetype.Manifest, error) {
	var m devicetype.Manifest
	if err := c.getJSON(ctx, "/device-types/v1/"+url.PathEscape(slug), &m); err != nil {
		return nil, fmt.Errorf("failed to fetch device type %s: %w", slug, err)
	}
	return &m, nil
}

// GetOSVersions lists the OS versions published for a device type. Order is
// not guaranteed; callers resolve ranges themselves.
func (c *Client) GetOSVersions(ctx context.Context, slug string) ([]string, error) {
	var body struct {
		Versions []string `json:"versions"`
	}
	if err := c.getJSON(ctx, "/device-types/v1/"+url.PathEscape(slug)+"/versions", &body); err != nil {
		return nil, fmt.Errorf("failed to fetch OS versions for %s: %w", slug, err)
	}
	return body.Versions, nil
}

// GenerateDeviceKey provisions a fresh API key for the device. Device config
// descriptors embed this key; fleet descriptors do not need one.
func (c *Client) GenerateDeviceKey(ctx context.Context, uuid string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api-key/device/"+url.PathEscape(uuid)+"/device-key", bytes.NewReader(nil))
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to generate device key for %s: %w", uuid, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", fmt.Errorf("failed to generate device key for %s: %w", uuid, err)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read device key response: %w", err)
	}

	// The endpoint returns the key as a JSON string.
	var key string
	if err := json.Unmarshal(data, &key); err != nil {
		return "", fmt.Errorf("unexpected device key response: %w", err)
	}
	return key, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
