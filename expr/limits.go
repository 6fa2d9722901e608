package expr

// Limits on expression size, checked before any work is done
const (
	// MaxSourceLength is the maximum expression length in bytes
	MaxSourceLength = 64 * 1024

	// MaxTokens is the maximum number of tokens in an expression
	MaxTokens = 10000

	// MaxDepth is the maximum nesting depth of the parse
	MaxDepth = 100
)

// depthCounter tracks parse nesting depth
type depthCounter struct {
	depth    int
	maxDepth int
}

func newDepthCounter() *depthCounter {
	return &depthCounter{maxDepth: MaxDepth}
}

// enter increments depth and fails if the limit is exceeded
func (c *depthCounter) enter(pos int) error {
	c.depth++
	if c.depth > c.maxDepth {
		return errorf(ErrSyntax, pos, "expression nested deeper than %d", c.maxDepth)
	}
	return nil
}

func (c *depthCounter) exit() {
	c.depth--
}

func checkSource(src string) error {
	if len(src) > MaxSourceLength {
		return errorf(ErrSyntax, -1, "expression too long: %d bytes (max %d)", len(src), MaxSourceLength)
	}
	return nil
}

func checkTokens(tokens []Token) error {
	if len(tokens) > MaxTokens {
		return errorf(ErrSyntax, -1, "too many tokens: %d (max %d)", len(tokens), MaxTokens)
	}
	return nil
}
