package mcpserver

// SpecFormatContract describes the spec document layout that LLM
// consumers should follow when reading or editing specs.
const SpecFormatContract = `# Spec Format Contract

Every spec is a directory under the project's specs root holding a
` + "`" + `README.md` + "`" + ` main document.

## Layout

` + "```" + `text
specs/
  001-auth-flow/
    README.md          # main document (required)
    DESIGN.md          # optional sub-spec documents
  002-session-store/
    README.md
` + "```" + `

Directory names start with a zero-padded sequence number followed by a
kebab-case slug. The legacy ` + "`" + `specs/archived/` + "`" + ` directory is still read
but deprecated; archive a spec by setting its status instead.

## Frontmatter

` + "```" + `markdown
---
status: planned              # REQUIRED: draft | planned | in-progress | complete | archived
priority: high               # OPTIONAL: critical | high | medium | low
tags: [auth, backend]        # OPTIONAL
assignee: alice              # OPTIONAL
created_at: '2025-01-15T09:00:00Z'
depends_on:                  # OPTIONAL: slug, padded number or bare number
  - 002-session-store
  - "7"
---

# Auth flow

## Overview

What this spec delivers and why.
` + "```" + `

## Rules

1. The ` + "`" + `---` + "`" + ` fences must be the first line of the file.
2. ` + "`" + `status` + "`" + ` is required; a spec without it is not loaded.
3. The first H1 heading is the title.
4. Include an ` + "`" + `## Overview` + "`" + ` section.
5. Keep a spec under 400 lines and about 3500 tokens; split larger work
   into separate specs linked through ` + "`" + `depends_on` + "`" + `.
6. Move a draft to ` + "`" + `planned` + "`" + ` before starting it. Change status with
   the ` + "`" + `update_spec_status` + "`" + ` tool rather than by hand so timestamps stay
   consistent.
7. Timestamps are RFC 3339 in UTC.
`
