package runtime

// Binding is one name's slot in a frame: its current value, mutability and
// the kind fixed at declaration time.
type Binding struct {
	Value    Value
	Const    bool
	DeclKind ValueKind
}

// Frame is one scope's binding table linked to its parent. Frames form a
// tree rooted at the single global frame; closures keep their declaring
// frame alive after the declaring block exits.
type Frame struct {
	parent *Frame
	vars   map[string]*Binding
}

func NewFrame(parent *Frame) *Frame {
	return &Frame{parent: parent, vars: map[string]*Binding{}}
}

// Define binds a new name in this frame. It reports whether the name was
// free; exactly one binding per name per frame.
func (f *Frame) Define(name string, b *Binding) bool {
	if _, ok := f.vars[name]; ok {
		return false
	}
	f.vars[name] = b
	return true
}

// Resolve walks the frame chain from this frame to the global frame and
// returns the first binding of name, or nil.
func (f *Frame) Resolve(name string) *Binding {
	for cur := f; cur != nil; cur = cur.parent {
		if b, ok := cur.vars[name]; ok {
			return b
		}
	}
	return nil
}
