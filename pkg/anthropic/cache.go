package anthropic

// BuildCachedSystemBlocks returns a single system block with an ephemeral
// cache breakpoint. Requirement classification sends the same jurisdiction
// rules with every batch, so later batches in a run read the prompt from cache.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	return []SystemBlock{
		{
			Text:         text,
			CacheControl: &CacheControl{TTL: "5m"},
		},
	}
}
