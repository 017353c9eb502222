package record

import (
	"github.com/gridbase/gridbase/compile"
	"github.com/gridbase/gridbase/dialect"
	"github.com/gridbase/gridbase/schema"
)

func newTestCompiler(m *schema.Model) *compile.Compiler {
	return compile.New(m, dialect.Postgres)
}
