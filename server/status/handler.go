// Package status contains the status API used to inspect the state of a
// running node.
package status

import "github.com/gin-gonic/gin"

// Handler is a handler in the status API.
//
// The handler registers routes that expose APIs to inspect the status of a
// component, such as the membership view of the node.
type Handler interface {
	// Register registers routes on the given group for the handler.
	Register(group *gin.RouterGroup)
}
