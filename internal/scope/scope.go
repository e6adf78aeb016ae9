// Package scope resolves which todo collection a request addresses.
package scope

import "github.com/gin-gonic/gin"

// QueryParam is the query parameter naming the client collection.
const QueryParam = "client_id"

const contextKeyClientID = "client_id"

// ClientIDFromContext returns the client ID set by ClientScope. Empty means
// the global collection.
func ClientIDFromContext(c *gin.Context) string {
	v, ok := c.Get(contextKeyClientID)
	if !ok {
		return ""
	}
	id, ok := v.(string)
	if !ok {
		return ""
	}
	return id
}

// ClientScope reads client_id from the query string and stores it in the
// gin context. The value is opaque; only an empty value selects the global
// collection.
func ClientScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(contextKeyClientID, c.Query(QueryParam))
		c.Next()
	}
}
