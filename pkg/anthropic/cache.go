package anthropic

// BuildCachedSystemBlocks wraps a system prompt in a single block with an
// ephemeral cache breakpoint. Every extraction batch sends the same system
// prompt, so after the first call the prefix is served from cache.
func BuildCachedSystemBlocks(text, ttl string) []SystemBlock {
	if text == "" {
		return nil
	}
	return []SystemBlock{
		{
			Text:         text,
			CacheControl: &CacheControl{TTL: ttl},
		},
	}
}
