package profile

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Load reads and compiles a profile from a single CUE file. The file must
// contain a top-level "profile" struct.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &CompileError{
			Field:   "profile",
			Message: fmt.Sprintf("reading profile: %v", err),
		}
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	profileVal := v.LookupPath(cue.ParsePath("profile"))
	if !profileVal.Exists() {
		return nil, &CompileError{
			Field:   "profile",
			Message: fmt.Sprintf("no profile struct found in %s", path),
			Pos:     v.Pos(),
		}
	}

	return Compile(profileVal)
}
