package chunk

// Pos identifies a chunk by its X, Y and Z coordinates in chunk space.
type Pos struct{ X, Y, Z int64 }

// Offset returns the position shifted by the given number of chunks.
func (p Pos) Offset(dx, dy, dz int64) Pos {
	return Pos{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

// SquaredDistance returns the squared euclidean distance between two chunk positions.
func (p Pos) SquaredDistance(o Pos) int64 {
	dx, dy, dz := p.X-o.X, p.Y-o.Y, p.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

// Column returns the (x, z) column key shared by every chunk stacked above and below p.
func (p Pos) Column() ColumnPos {
	return ColumnPos{X: p.X, Z: p.Z}
}

// ColumnPos identifies a vertical stack of chunks.
type ColumnPos struct{ X, Z int64 }

// PosOf returns the chunk containing the world block coordinate (bx, by, bz).
func PosOf(bx, by, bz int64) Pos {
	return Pos{X: floorDiv(bx, Size), Y: floorDiv(by, Size), Z: floorDiv(bz, Size)}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// Set is a set of chunk positions.
type Set map[Pos]struct{}

// Add inserts pos and reports whether it was not already present.
func (s Set) Add(pos Pos) bool {
	if _, ok := s[pos]; ok {
		return false
	}
	s[pos] = struct{}{}
	return true
}

// Has reports whether pos is in the set.
func (s Set) Has(pos Pos) bool {
	_, ok := s[pos]
	return ok
}

// Remove deletes pos and reports whether it was present.
func (s Set) Remove(pos Pos) bool {
	if _, ok := s[pos]; !ok {
		return false
	}
	delete(s, pos)
	return true
}
