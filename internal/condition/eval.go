package condition

import (
	"strings"
)

func (l *literal) eval(map[string]any) (any, error) {
	return l.value, nil
}

func (i *identifier) eval(env map[string]any) (any, error) {
	v, ok := env[i.name]
	if !ok {
		return nil, failAt(i.pos, "undefined identifier %q", i.name)
	}
	return v, nil
}

func (l *listExpr) eval(env map[string]any) (any, error) {
	values := make([]any, 0, len(l.items))
	for _, item := range l.items {
		v, err := item.eval(env)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func (a *attribute) eval(env map[string]any) (any, error) {
	v, err := a.target.eval(env)
	if err != nil {
		return nil, err
	}

	switch a.name {
	case "length":
		switch t := v.(type) {
		case string:
			return float64(len([]rune(t))), nil
		case []any:
			return float64(len(t)), nil
		}
	case "is_empty":
		switch t := v.(type) {
		case string:
			return t == "", nil
		case []any:
			return len(t) == 0, nil
		}
	case "as_lower":
		if s, ok := v.(string); ok {
			return strings.ToLower(s), nil
		}
	case "as_upper":
		if s, ok := v.(string); ok {
			return strings.ToUpper(s), nil
		}
	}
	return nil, failAt(a.pos, "attribute %q is not defined for %s", a.name, typeName(v))
}

func (u *unary) eval(env map[string]any) (any, error) {
	v, err := u.operand.eval(env)
	if err != nil {
		return nil, err
	}
	if u.op == tokenNot {
		return !truthy(v), nil
	}
	n, ok := v.(float64)
	if !ok {
		return nil, failAt(u.pos, "cannot negate %s", typeName(v))
	}
	return -n, nil
}

func (l *logical) eval(env map[string]any) (any, error) {
	left, err := l.left.eval(env)
	if err != nil {
		return nil, err
	}
	lt := truthy(left)
	if l.op == tokenOr && lt {
		return true, nil
	}
	if l.op == tokenAnd && !lt {
		return false, nil
	}
	right, err := l.right.eval(env)
	if err != nil {
		return nil, err
	}
	return truthy(right), nil
}

func (c *comparison) eval(env map[string]any) (any, error) {
	left, err := c.left.eval(env)
	if err != nil {
		return nil, err
	}
	right, err := c.right.eval(env)
	if err != nil {
		return nil, err
	}

	switch c.op {
	case tokenEQ:
		return equal(left, right), nil
	case tokenNE:
		return !equal(left, right), nil
	}

	cmp, ok := order(left, right)
	if !ok {
		return nil, failAt(c.pos, "cannot order %s and %s", typeName(left), typeName(right))
	}
	switch c.op {
	case tokenLT:
		return cmp < 0, nil
	case tokenLE:
		return cmp <= 0, nil
	case tokenGT:
		return cmp > 0, nil
	default:
		return cmp >= 0, nil
	}
}

func (m *membership) eval(env map[string]any) (any, error) {
	left, err := m.left.eval(env)
	if err != nil {
		return nil, err
	}
	right, err := m.right.eval(env)
	if err != nil {
		return nil, err
	}

	var found bool
	switch container := right.(type) {
	case string:
		s, ok := left.(string)
		if !ok {
			return nil, failAt(m.pos, "cannot search for %s in a string", typeName(left))
		}
		found = strings.Contains(container, s)
	case []any:
		for _, item := range container {
			if equal(left, item) {
				found = true
				break
			}
		}
	default:
		return nil, failAt(m.pos, "%s is not a container", typeName(right))
	}
	return found != m.negate, nil
}

func (m *match) eval(env map[string]any) (any, error) {
	left, err := m.left.eval(env)
	if err != nil {
		return nil, err
	}
	subject, ok := left.(string)
	if !ok {
		return nil, failAt(m.pos, "cannot match %s against a regular expression", typeName(left))
	}

	re := m.re
	if re == nil {
		v, err := m.pattern.eval(env)
		if err != nil {
			return nil, err
		}
		pattern, ok := v.(string)
		if !ok {
			return nil, failAt(m.pos, "regular expression must be a string, got %s", typeName(v))
		}
		if re, err = compilePattern(pattern); err != nil {
			return nil, invalidAt(m.pos, "bad regular expression %q: %v", pattern, err)
		}
	}
	return re.MatchString(subject) != m.negate, nil
}

// truthy reduces a value to a boolean: empty strings and lists, zero, false and null are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	}
	return true
}

func equal(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !equal(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// order compares two numbers or two strings.
func order(a, b any) (int, bool) {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	}
	return 0, false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "list"
	}
	return "unknown"
}
