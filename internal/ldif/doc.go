/*
Package ldif parses LDIF text dumps into records and implements the
operations the ldifutil commands are built on.

# Pipeline

Raw text flows through three stages:

  - Classify tags a single physical line (dn, attribute, continuation,
    blank, comment, malformed).
  - Folder joins continuation lines onto their attribute line according to
    a FoldPolicy and, for directory comparisons, stitches wrapped DNs.
  - Parser groups logical lines into Records using blank lines and dn
    lines as boundaries.

Extract, DiffRecords, DiffAttribute and Filter consume the result.

# Folding

Each command keeps its established folding behaviour through a policy:
FoldEmptyOnly joins continuation lines only when the attribute's first
line carried an empty value, FoldAlways joins them unconditionally.
Continuation text is trimmed and joined with "\n", so an attribute whose
first line is empty yields a value starting with "\n".

Base64 ("::") and URL ("<") value specifications are not decoded; their
text is kept as the value.
*/
package ldif
