package mcpserver

// EditOptionsReference describes the AI edit pipeline for LLM
// consumers of the apply_edits tool.
const EditOptionsReference = `# Skald Edit Options Reference

The apply_edits tool runs a sequence of AI transformations over a
note's content. Pass the desired kinds as a comma-separated list.

## Edit kinds

| Kind                | Effect                                                |
|---------------------|-------------------------------------------------------|
| format_markdown     | Normalize Markdown syntax without changing wording    |
| fix_grammar         | Correct spelling, grammar, and punctuation            |
| add_headings        | Insert section headings where the text shifts topic   |
| improve_structure   | Reorder and group content for readability             |

## Length adjustment

At most one of the following may be passed via the length parameter:

- concise — tighten wording, remove redundancy
- expand  — elaborate with short clarifying detail

## Rules

1. Edits always run in a fixed order: format_markdown, fix_grammar,
   add_headings, improve_structure, then the length adjustment.
2. A failed edit is skipped; later edits still run over the last
   successful output. The result lists applied and failed edits.
3. The note is saved only when at least one edit applied. The save is
   guarded by the note's version tag, so concurrent changes surface
   as a conflict instead of being overwritten.
4. Content must be at least 10 characters of substance and at most
   50000 characters.
`
