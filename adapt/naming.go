package adapt

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/notargets/meshadapt/utils"
)

const meshExt = ".mesh"

func split(path string) (dir, stem, ext string) {
	dir = filepath.Dir(path)
	ext = filepath.Ext(path)
	if ext == "" {
		ext = meshExt
	}
	stem = utils.Stem(path)
	return
}

// ArtifactName returns the output of iteration i for an adaptation whose first output is base
func ArtifactName(base string, iteration int) string {
	if iteration == 0 {
		return base
	}
	dir, stem, ext := split(base)
	return filepath.Join(dir, fmt.Sprintf("%s_iteration_%d%s", stem, iteration, ext))
}

// DefaultOutput names the adapted mesh after its input, replacing "initial" with "adapted",
// or appending "_adapted" when the name carries no marker
func DefaultOutput(input string) string {
	dir, stem, ext := split(input)
	if strings.Contains(stem, "initial") {
		return filepath.Join(dir, strings.ReplaceAll(stem, "initial", "adapted")+ext)
	}
	return filepath.Join(dir, stem+"_adapted"+ext)
}

// DirectiveName is the level-set solution file that drives the adaptation producing output
func DirectiveName(output string) string {
	dir, stem, _ := split(output)
	return filepath.Join(dir, stem+"_ls.sol")
}

// ExtractedName is the default output of a subdomain extraction from input
func ExtractedName(input string) string {
	dir, stem, ext := split(input)
	return filepath.Join(dir, stem+"_extracted"+ext)
}
