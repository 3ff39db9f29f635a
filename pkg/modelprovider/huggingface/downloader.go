/*
 *     Copyright 2026 Socket, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package huggingface

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	huggingFaceBaseURL = "https://huggingface.co"
)

// parseModelURL parses a Hugging Face model URL and extracts the owner and repository name
func parseModelURL(modelURL string) (owner, repo string, err error) {
	// Handle both full URLs and short-form repo names
	modelURL = strings.TrimSpace(modelURL)

	// Remove trailing slashes
	modelURL = strings.TrimSuffix(modelURL, "/")

	// If it's a full URL, parse it
	if strings.HasPrefix(modelURL, "http://") || strings.HasPrefix(modelURL, "https://") {
		u, err := url.Parse(modelURL)
		if err != nil {
			return "", "", fmt.Errorf("invalid URL: %w", err)
		}

		// Expected format: https://huggingface.co/owner/repo
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) < 2 {
			return "", "", fmt.Errorf("invalid Hugging Face URL format, expected https://huggingface.co/owner/repo")
		}

		owner = parts[0]
		repo = parts[1]
	} else {
		// Handle short-form like "owner/repo"
		parts := strings.Split(modelURL, "/")
		if len(parts) != 2 {
			return "", "", fmt.Errorf("invalid model identifier, expected format: owner/repo")
		}

		owner = parts[0]
		repo = parts[1]
	}

	if owner == "" || repo == "" {
		return "", "", fmt.Errorf("owner and repository name cannot be empty")
	}

	return owner, repo, nil
}

// modelInfo is the subset of the hub's model metadata response we consume.
type modelInfo struct {
	Siblings []sibling `json:"siblings"`
}

type sibling struct {
	Rfilename string `json:"rfilename"`
}

// listFiles queries the hub API for the repository's file listing.
func (p *Provider) listFiles(ctx context.Context, owner, repo string) ([]string, error) {
	// Format: https://huggingface.co/api/models/{owner}/{repo}
	apiURL := fmt.Sprintf("%s/api/models/%s/%s", p.baseURL, owner, repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range authHeader() {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve model %s/%s: %w", owner, repo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to resolve model %s/%s, status code: %d", owner, repo, resp.StatusCode)
	}

	var info modelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to parse model metadata: %w", err)
	}

	names := make([]string, 0, len(info.Siblings))
	for _, s := range info.Siblings {
		if s.Rfilename != "" {
			names = append(names, s.Rfilename)
		}
	}

	return names, nil
}

// authHeader returns an Authorization header when a token is available.
// Public repositories work without one.
func authHeader() http.Header {
	header := http.Header{}
	if token, err := getToken(); err == nil && token != "" {
		header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	return header
}

// checkHuggingFaceAuth checks if a Hugging Face token is available
func checkHuggingFaceAuth() error {
	// Try to find the HF token
	token := os.Getenv("HF_TOKEN")
	if token != "" {
		return nil
	}

	// Check if the token file exists
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}

	tokenPath := filepath.Join(homeDir, ".huggingface", "token")
	if _, err := os.Stat(tokenPath); err == nil {
		return nil
	}

	return fmt.Errorf("not authenticated with Hugging Face. Set HF_TOKEN or create %s", tokenPath)
}

// getToken retrieves the Hugging Face token from environment or token file
func getToken() (string, error) {
	// First check environment variable
	token := os.Getenv("HF_TOKEN")
	if token != "" {
		return token, nil
	}

	// Then check the token file
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	tokenPath := filepath.Join(homeDir, ".huggingface", "token")
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}
