package mcpserver

// AnnotationFormat describes how vault pages carry semantic annotations.
const AnnotationFormat = `# semwiki Annotation Format

Pages are Markdown files. The path encodes namespace and title.

## Paths

- ` + "`" + `Foo.md` + "`" + ` is the page Foo in the main namespace.
- ` + "`" + `Property/Has_name.md` + "`" + ` declares the property Has name.
- ` + "`" + `Category/Cities.md` + "`" + ` is the category Cities.
- Other directories are part of the title: ` + "`" + `Notes/Foo.md` + "`" + ` is the page Notes/Foo.

## Annotations

Inline, anywhere in the body:

` + "```" + `markdown
Berlin lies in [[Located in::Germany]] and has [[Population::3850809]] people.
[[Has note::shown value is the label|label]]
` + "```" + `

In frontmatter, as a map of property to value or list of values:

` + "```" + `markdown
---
title: Berlin
properties:
  Located in: Germany
  Has note:
    - first
    - second
subobjects:
  census 2020:
    Population: 3664088
---
` + "```" + `

## Property pages

A property page may declare the value type and an imported vocabulary term:

` + "```" + `markdown
[[Has type::Number]]
[[Imported from::foaf:name]]
` + "```" + `

Known types: Page, Number, Quantity, Temperature, Text, String, Code, URL, Email.
Properties without a declared type use the configured default type.
The vocabulary prefix must be configured under ` + "`" + `export.vocabularies` + "`" + `.

## Inline queries

` + "`" + `{{#ask: ...}}` + "`" + ` blocks are recorded for post-processing; their conditions are
not annotations of the page.
`
