package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"gstd/pkg/core"
	"gstd/pkg/parser"
)

const contentType = "application/json; charset=utf-8"

// StatusFor maps a result code onto the HTTP status of the reply
func StatusFor(code core.Code) int {
	switch code {
	case core.EOK:
		return http.StatusOK
	case core.BadCommand, core.NoResource:
		return http.StatusNotFound
	case core.ExistingResource, core.ExistingName:
		return http.StatusConflict
	case core.BadValue:
		return http.StatusNoContent
	default:
		return http.StatusBadRequest
	}
}

// ResourceHandler serves the resource tree. The request path is the
// resource URI and the method selects the verb.
//
//	GET    /pipelines                          read
//	POST   /pipelines?name=p&description=...   create
//	PUT    /pipelines/p/state?name=playing     update
//	DELETE /pipelines?name=p                   delete
func (s *Server) ResourceHandler(c *gin.Context) {
	uri := c.Request.URL.Path
	name := c.Query("name")

	var verb, args string
	switch c.Request.Method {
	case http.MethodGet:
		verb = parser.VerbRead
	case http.MethodPost:
		verb = parser.VerbCreate
		args = strings.TrimSpace(name + " " + c.Query("description"))
	case http.MethodPut:
		verb = parser.VerbUpdate
		args = name
	case http.MethodDelete:
		verb = parser.VerbDelete
		args = name
	case http.MethodOptions:
		c.Header("Allow", "GET, POST, PUT, DELETE, OPTIONS")
		s.reply(c, core.EOK, nil)
		return
	default:
		s.reply(c, core.BadCommand, nil)
		return
	}

	start := time.Now()
	code, doc := s.parser.Execute(verb, uri, args)
	if s.metrics != nil {
		s.metrics.ObserveCommand(verb, code, time.Since(start))
	}
	s.reply(c, code, doc)
}

// CommandHandler runs the command line carried in the request body
func (s *Server) CommandHandler(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCommandSize))
	if err != nil {
		s.reply(c, core.IpcError, nil)
		return
	}
	code, doc := s.parser.Parse(string(body))
	s.reply(c, code, doc)
}

// CommandsHandler lists the usage line of every command
func (s *Server) CommandsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"commands": parser.Usage()})
}

func (s *Server) reply(c *gin.Context, code core.Code, doc *core.Document) {
	c.Data(StatusFor(code), contentType, []byte(parser.Envelope(code, doc)))
}
