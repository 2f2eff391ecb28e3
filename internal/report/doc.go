// Package report renders API comparison results and build errors as
// pull-request comment markdown.
//
// A change report lists every added, changed and removed member as lines of
// a ```diff fence. Members are rendered the way they appear in source
// documentation: privilege, feature and since tags, the EditorBrowsable
// attribute for hidden members, then the signature. Changed members are
// diffed line by line. Large reports are collapsed behind a <details>
// toggle.
package report
