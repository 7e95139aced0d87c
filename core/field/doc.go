/*
Package field defines field descriptors, the single declarative source from
which the search panel, the data table and the dialog form are derived.

# Descriptor

A field list in YAML:

	fields:
	  - key: org
	    title: Organization
	    search: true
	    dialog: { required: true }

	  - key: warehouse
	    title: Warehouse
	    sort: true
	    search: { position: more }
	    default_sorts_value: descend
	    sort_order: 0

	  - key: notes
	    title: Notes
	    type: textarea
	    table: false
	    dialog: true

Each of search, table and dialog is a Surface: either a boolean shorthand or an
override object. true takes part with defaults, false opts out (for table it
hides the column but keeps it for column configuration), and an object takes
part with the given overrides.

# Normalization

Normalize resolves every surface into explicit SearchField, TableField and
DialogField values. It is pure and never fails. Problems degrade instead:

  - an empty type becomes "input"
  - an unknown type becomes "input", with a suggestion for the closest known type
  - a searchable field with no key becomes a placeholder titled "configuration error"
  - a dialog field with no key is dropped

Every degradation is returned as a Diagnostic.
*/
package field
