package models

type HealthResponse struct {
	Status       string `json:"status"`
	Timestamp    int64  `json:"timestamp"`
	CacheVersion string `json:"cache_version"`
	ProxyPhase   string `json:"proxy_phase"`
	Favourites   int    `json:"favourites"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
