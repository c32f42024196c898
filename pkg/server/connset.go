package server

// ConnSet is the set of open connections. Insert and remove are O(1).
type ConnSet map[*Conn]struct{}

func (s ConnSet) Add(c *Conn)    { s[c] = struct{}{} }
func (s ConnSet) Remove(c *Conn) { delete(s, c) }
func (s ConnSet) Len() int       { return len(s) }

func (s ConnSet) Contains(c *Conn) bool {
	_, ok := s[c]
	return ok
}
