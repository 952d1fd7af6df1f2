package local

import (
	"fmt"
	"strings"
	"unicode"

	"gstd/pkg/engine"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokLink
	tokOpen
	tokClose
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits a launch description into words, links and bin
// delimiters. Double quotes group text containing spaces.
func tokenize(description string) ([]token, error) {
	var (
		tokens  []token
		current strings.Builder
		quoted  bool
		pending bool
	)
	flush := func() {
		if pending {
			tokens = append(tokens, token{kind: tokWord, text: current.String()})
			current.Reset()
			pending = false
		}
	}
	for _, r := range description {
		switch {
		case r == '"':
			quoted = !quoted
			pending = true
		case quoted:
			current.WriteRune(r)
		case unicode.IsSpace(r):
			flush()
		case r == '!':
			flush()
			tokens = append(tokens, token{kind: tokLink, text: "!"})
		case r == '(':
			flush()
			tokens = append(tokens, token{kind: tokOpen, text: "("})
		case r == ')':
			flush()
			tokens = append(tokens, token{kind: tokClose, text: ")"})
		default:
			current.WriteRune(r)
			pending = true
		}
	}
	if quoted {
		return nil, fmt.Errorf("%w: unterminated quote", errSyntax)
	}
	flush()
	return tokens, nil
}

type launchParser struct {
	eng    *Engine
	tokens []token
	pos    int
}

func (p *launchParser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *launchParser) next() token {
	t := p.tokens[p.pos]
	p.pos++
	return t
}

// parseChains reads items until the closing delimiter or the end. Adjacent
// items joined by "!" are linked; an item without "!" starts a new chain.
func (p *launchParser) parseChains(closing bool) ([]engine.Element, error) {
	var (
		items []engine.Element
		prev  engine.Element
		link  bool
	)
	for {
		t, ok := p.peek()
		if !ok {
			if closing {
				return nil, fmt.Errorf("%w: missing ')'", errSyntax)
			}
			break
		}
		if t.kind == tokClose {
			if !closing {
				return nil, fmt.Errorf("%w: unexpected ')'", errSyntax)
			}
			p.next()
			break
		}
		if t.kind == tokLink {
			if prev == nil || link {
				return nil, fmt.Errorf("%w: link without a source", errSyntax)
			}
			p.next()
			link = true
			continue
		}

		item, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		if link {
			if err := linkElements(prev, item); err != nil {
				return nil, err
			}
			link = false
		}
		items = append(items, item)
		prev = item
	}
	if link {
		return nil, fmt.Errorf("%w: link without a sink", errSyntax)
	}
	return items, nil
}

func (p *launchParser) parseItem() (engine.Element, error) {
	t := p.next()
	switch t.kind {
	case tokOpen:
		return p.parseBin()
	case tokWord:
		if strings.Contains(t.text, "=") {
			return nil, fmt.Errorf("%w: property %q without an element", errSyntax, t.text)
		}
		return p.parseElement(t.text)
	}
	return nil, fmt.Errorf("%w: unexpected %q", errSyntax, t.text)
}

func (p *launchParser) parseElement(factoryName string) (engine.Element, error) {
	build, ok := factories[factoryName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrNoSuchFactory, factoryName)
	}
	el := build(p.eng, p.eng.uniqueName(factoryName))
	if err := p.applyProperties(el.properties, el.pads); err != nil {
		return nil, err
	}
	return el, nil
}

func (p *launchParser) parseBin() (engine.Element, error) {
	bin := newBin(p.eng, p.eng.uniqueName("bin"))
	if err := p.applyProperties(bin.properties, nil); err != nil {
		return nil, err
	}
	children, err := p.parseChains(true)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("%w: empty bin", errSyntax)
	}
	for _, c := range children {
		if err := bin.add(c); err != nil {
			return nil, err
		}
	}
	return bin, nil
}

// applyProperties consumes leading prop=value words. "name" renames the
// object and "pad::prop" addresses a child pad.
func (p *launchParser) applyProperties(props *properties, pads []engine.Object) error {
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokWord || !strings.Contains(t.text, "=") {
			return nil
		}
		p.next()
		key, value, _ := strings.Cut(t.text, "=")
		if key == nameSpec.Name {
			if value == "" {
				return fmt.Errorf("%w: empty name", errSyntax)
			}
			props.rename(value)
			continue
		}
		target := props
		if child, prop, found := strings.Cut(key, "::"); found {
			target = nil
			for _, o := range pads {
				if pd, ok := o.(*pad); ok && pd.Name() == child {
					target = pd.properties
				}
			}
			if target == nil {
				return fmt.Errorf("%w: %s has no child %q", engine.ErrNoSuchAttribute, props.Name(), child)
			}
			key = prop
		}
		spec := target.FindAttribute(key)
		if spec == nil {
			return fmt.Errorf("%w: %s has no property %q", engine.ErrNoSuchAttribute, props.Name(), key)
		}
		v, err := deserialize(spec, value)
		if err != nil {
			return err
		}
		if err := target.SetAttribute(spec, v); err != nil {
			return err
		}
	}
}

func linkElements(src, sink engine.Element) error {
	from, to := tail(src), head(sink)
	if from == nil || to == nil {
		return fmt.Errorf("%w: cannot link %s to %s", errSyntax, src.Name(), sink.Name())
	}
	if from.role == roleSink {
		return fmt.Errorf("%w: %s has no source pad", errSyntax, from.Name())
	}
	if to.role == roleSource {
		return fmt.Errorf("%w: %s has no sink pad", errSyntax, to.Name())
	}
	from.link(to)
	return nil
}
