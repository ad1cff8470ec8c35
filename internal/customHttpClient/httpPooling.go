package customHttpClient

import (
	"net/http"

	"github.com/avarma/deptqa/internal/config"
)

var customTransport = &http.Transport{
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

var pooledClient = &http.Client{Transport: customTransport}

// PooledClient is shared by outbound provider calls so they reuse connections.
func PooledClient() *http.Client {
	return pooledClient
}
