package member

// pageCursor is the continuation state of the member pagination.
type pageCursor struct {
	token   string
	hasMore bool
}

// pager tracks one in-flight fetch and the cursors of both lists.
type pager struct {
	cursor  pageCursor
	loading bool

	mutePage    int
	muteHasMore bool
}

func newPager() pager {
	p := pager{}
	p.reset()
	p.resetMute()
	return p
}

func (p *pager) reset() {
	p.cursor = pageCursor{hasMore: true}
}

func (p *pager) resetMute() {
	p.mutePage = 1
	p.muteHasMore = true
}

// advance records a member page. A short page means the list is exhausted.
// So does a missing token: sending it back would restart from the first page.
func (p *pager) advance(token string, returned, pageSize int) {
	p.cursor = pageCursor{token: token, hasMore: returned >= pageSize && token != ""}
}

func (p *pager) advanceMute(returned, pageSize int) {
	p.mutePage++
	p.muteHasMore = returned >= pageSize
}
