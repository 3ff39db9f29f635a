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

package modelscope

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
	modelScopeBaseURL = "https://modelscope.cn"
)

// parseModelURL parses a ModelScope model URL and extracts the owner and repository name
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

		// Expected formats:
		//   https://modelscope.cn/models/owner/repo
		//   https://modelscope.cn/owner/repo
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) > 0 && parts[0] == "models" {
			parts = parts[1:]
		}
		if len(parts) < 2 {
			return "", "", fmt.Errorf("invalid ModelScope URL format, expected https://modelscope.cn/models/owner/repo")
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

// repoFilesResponse is the subset of the hub's file listing response we
// consume. The API reports errors through Code with an HTTP 200 status.
type repoFilesResponse struct {
	Code int `json:"Code"`
	Data struct {
		Files []repoFile `json:"Files"`
	} `json:"Data"`
	Message string `json:"Message"`
}

type repoFile struct {
	Path string `json:"Path"`
	Type string `json:"Type"`
}

// listFiles queries the hub API for the repository's file listing.
func (p *Provider) listFiles(ctx context.Context, owner, repo string) ([]string, error) {
	// Format: https://modelscope.cn/api/v1/models/{owner}/{repo}/repo/files?Recursive=true
	apiURL := fmt.Sprintf("%s/api/v1/models/%s/%s/repo/files?Recursive=true", p.baseURL, owner, repo)

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

	var listing repoFilesResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to parse model metadata: %w", err)
	}

	if listing.Code != http.StatusOK {
		return nil, fmt.Errorf("failed to resolve model %s/%s: %s", owner, repo, listing.Message)
	}

	names := make([]string, 0, len(listing.Data.Files))
	for _, f := range listing.Data.Files {
		if f.Type == "blob" && f.Path != "" {
			names = append(names, f.Path)
		}
	}

	return names, nil
}

// authHeader returns an Authorization header when a token is available.
// Public repositories work without one.
func authHeader() http.Header {
	header := http.Header{}
	if token := os.Getenv("MODELSCOPE_API_TOKEN"); token != "" {
		header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	return header
}

// checkModelScopeAuth checks if a ModelScope token is available
func checkModelScopeAuth() error {
	// Try to find the API token
	token := os.Getenv("MODELSCOPE_API_TOKEN")
	if token != "" {
		return nil
	}

	// Check if the credentials file exists
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}

	credentialsPath := filepath.Join(homeDir, ".modelscope", "credentials")
	if _, err := os.Stat(credentialsPath); err == nil {
		return nil
	}

	return fmt.Errorf("not authenticated with ModelScope. Set MODELSCOPE_API_TOKEN or create %s", credentialsPath)
}
