package archive

import (
	logexport "github.com/lex00/logexport-aws-go"
)

// Component is a resource together with the logical ID it is emitted under.
type Component struct {
	LogicalID string
	Resource  logexport.Resource
	DependsOn []string
}
