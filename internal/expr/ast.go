// internal/expr/ast.go
package expr

// node is one element of a parsed formula.
type node interface {
	position() int
}

type numberLit struct {
	pos int
	val float64
}

// addressRef is a five-digit integer literal. It evaluates to the value of
// the channel owning that register address when the environment knows one,
// and to the literal number otherwise.
type addressRef struct {
	pos  int
	addr int
	val  float64
}

type stringLit struct {
	pos int
	val string
}

type varRef struct {
	pos  int
	name string
}

type unaryExpr struct {
	pos int
	op  string
	x   node
}

type binaryExpr struct {
	pos  int
	op   string
	x, y node
}

type callExpr struct {
	pos  int
	name string
	args []node
}

func (n *numberLit) position() int  { return n.pos }
func (n *addressRef) position() int { return n.pos }
func (n *stringLit) position() int  { return n.pos }
func (n *varRef) position() int     { return n.pos }
func (n *unaryExpr) position() int  { return n.pos }
func (n *binaryExpr) position() int { return n.pos }
func (n *callExpr) position() int   { return n.pos }

// walk visits n and every node below it, depth first.
func walk(n node, fn func(node)) {
	if n == nil {
		return
	}
	fn(n)
	switch t := n.(type) {
	case *unaryExpr:
		walk(t.x, fn)
	case *binaryExpr:
		walk(t.x, fn)
		walk(t.y, fn)
	case *callExpr:
		for _, a := range t.args {
			walk(a, fn)
		}
	}
}
