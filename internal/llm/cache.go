// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import "sync"

// ClientCache holds the client for the most recent credential. The cache
// is the only state shared between concurrent research units.
type ClientCache struct {
	mu     sync.Mutex
	build  func(apiKey string) *Client
	key    string
	client *Client
}

// NewClientCache returns a cache that builds clients with build.
func NewClientCache(build func(apiKey string) *Client) *ClientCache {
	return &ClientCache{build: build}
}

// Get returns the cached client when apiKey matches the cached credential.
// A different credential replaces the cached client.
func (c *ClientCache) Get(apiKey string) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && c.key == apiKey {
		return c.client
	}
	c.key = apiKey
	c.client = c.build(apiKey)
	return c.client
}
