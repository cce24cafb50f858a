package percolation

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const cursorPrefix = "arrayconnection:"

type CandidateSkill struct {
	ID        string `json:"id"`
	PrefLabel string `json:"prefLabel"`
}

type Edge struct {
	Cursor string         `json:"cursor"`
	Node   CandidateSkill `json:"node"`
}

type PageInfo struct {
	HasNextPage     bool   `json:"hasNextPage"`
	HasPreviousPage bool   `json:"hasPreviousPage"`
	StartCursor     string `json:"startCursor,omitempty"`
	EndCursor       string `json:"endCursor,omitempty"`
}

// Connection is one page of candidate skills.
type Connection struct {
	Edges      []Edge   `json:"edges"`
	PageInfo   PageInfo `json:"pageInfo"`
	TotalCount int      `json:"totalCount"`
}

// Nodes returns the skills of the page in order.
func (c *Connection) Nodes() []CandidateSkill {
	nodes := make([]CandidateSkill, 0, len(c.Edges))
	for _, e := range c.Edges {
		nodes = append(nodes, e.Node)
	}
	return nodes
}

// NewConnection slices all[offset : offset+limit].
func NewConnection(all []CandidateSkill, limit, offset int) *Connection {
	conn := &Connection{
		Edges:      make([]Edge, 0),
		TotalCount: len(all),
	}

	start := min(max(offset, 0), len(all))
	end := min(start+max(limit, 0), len(all))

	for i := start; i < end; i++ {
		conn.Edges = append(conn.Edges, Edge{Cursor: OffsetToCursor(i), Node: all[i]})
	}

	conn.PageInfo.HasPreviousPage = start > 0
	conn.PageInfo.HasNextPage = end < len(all)
	if len(conn.Edges) > 0 {
		conn.PageInfo.StartCursor = conn.Edges[0].Cursor
		conn.PageInfo.EndCursor = conn.Edges[len(conn.Edges)-1].Cursor
	}

	return conn
}

func OffsetToCursor(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(cursorPrefix + strconv.Itoa(offset)))
}

func CursorToOffset(cursor string) (int, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("decoding cursor: %w", err)
	}
	s, ok := strings.CutPrefix(string(raw), cursorPrefix)
	if !ok {
		return 0, fmt.Errorf("malformed cursor %q", cursor)
	}
	offset, err := strconv.Atoi(s)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("malformed cursor %q", cursor)
	}
	return offset, nil
}
