package www

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Perform the request, and if any error occurs (transport or non-200 status code), return an error.
// This does the work for you of checking for a non-200 response, reading the response body,
// and turning it into an error.
// client may be nil, in which case http.DefaultClient is used.
func Do(client *http.Client, req *http.Request) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		respB, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP error %v (%v)", resp.Status, string(respB))
	}
	return resp, nil
}

// FetchJSON performs the request and decodes a JSON response body into output.
func FetchJSON(client *http.Client, req *http.Request, output any) error {
	resp, err := Do(client, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(output)
}
