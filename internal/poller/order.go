// internal/poller/order.go
package poller

// mathOrder returns an evaluation order in which every math channel comes
// after the math channels it references, plus the members of reference
// cycles. deps must only name entries of names.
//
// Tarjan's algorithm emits strongly connected components dependencies
// first, which is the evaluation order directly.
func mathOrder(names []string, deps map[string][]string) ([]string, map[string]bool) {
	var (
		index   = make(map[string]int, len(names))
		low     = make(map[string]int, len(names))
		onStack = make(map[string]bool, len(names))
		stack   []string
		next    int

		order  = make([]string, 0, len(names))
		cyclic = make(map[string]bool)
	)

	var connect func(n string)
	connect = func(n string) {
		index[n] = next
		low[n] = next
		next++
		stack = append(stack, n)
		onStack[n] = true

		for _, d := range deps[n] {
			if _, seen := index[d]; !seen {
				connect(d)
				low[n] = min(low[n], low[d])
			} else if onStack[d] {
				low[n] = min(low[n], index[d])
			}
		}

		if low[n] != index[n] {
			return
		}

		// n is the root of a component; pop it
		var comp []string
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			comp = append(comp, top)
			if top == n {
				break
			}
		}

		selfRef := false
		for _, d := range deps[n] {
			if d == n {
				selfRef = true
			}
		}
		if len(comp) > 1 || selfRef {
			for _, c := range comp {
				cyclic[c] = true
			}
		}

		// keep list order inside a component
		for i := len(comp) - 1; i >= 0; i-- {
			order = append(order, comp[i])
		}
	}

	for _, n := range names {
		if _, seen := index[n]; !seen {
			connect(n)
		}
	}
	return order, cyclic
}
