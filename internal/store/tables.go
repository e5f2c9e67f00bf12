package store

// Table names, one per §3.4 sub-database.
const (
	TableFrontiers      = "frontiers"
	TableAccounts       = "accounts"
	TableStateBlocks    = "state_blocks"
	TableCommentBlocks  = "comment_blocks"
	TablePending        = "pending"
	TableBlocksInfo     = "blocks_info"
	TableRepresentation = "representation"
	TableUnchecked      = "unchecked"
	TableChecksum       = "checksum"
	TableVote           = "vote"
	TableMeta           = "meta"
)

var allTables = []string{
	TableFrontiers,
	TableAccounts,
	TableStateBlocks,
	TableCommentBlocks,
	TablePending,
	TableBlocksInfo,
	TableRepresentation,
	TableUnchecked,
	TableChecksum,
	TableVote,
	TableMeta,
}
