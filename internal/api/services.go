package api

import (
	"github.com/readalongapp/readalong-server/internal/service"
)

// Services groups the business logic services used by the API server.
type Services struct {
	Book     *service.BookService
	Progress *service.ProgressService
	Search   *service.SearchService
}
