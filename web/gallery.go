package web

import (
	"fmt"
	"strings"
)

// BuildGallery constructs an html web page displaying the album assets with
// the given filenames. It is written into the album directory after a fully
// successful download so the album can be browsed locally.
func BuildGallery(filenames []string) string {
	sb := strings.Builder{}

	sb.WriteString(`<!DOCTYPE html>
<html>
<body>
`)

	for _, f := range filenames {
		sb.WriteString(fmt.Sprintf("<img src=\"%s\" alt=\"%s\" style=\"background-size:100%% 100%%\">\n", f, f))
	}

	sb.WriteString(`</body>
</html>
`)

	return sb.String()
}
