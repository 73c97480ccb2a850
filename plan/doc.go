package plan

// The following documentation describes how a query text is mapped onto one
// of the shapes every engine knows how to execute.
//
// A query goes through 3 phases, all of them pure functions of the text and
// the schemas of the loaded tables.
//
// 1) Alias resolution
//    The token stream is scanned for FROM and JOIN. The identifier following
//    the keyword is the table name, an optional identifier after it, with or
//    without AS, is the alias. The result is an AliasMap, an alias never
//    declared resolves to itself. A FROM or JOIN without a following table is
//    a malformed query.
//
// 2) Classification
//    The token stream decides the shape, in this priority:
//
//      JOIN token             => EquiJoinFilter(left, right)
//      GROUP BY token         => GroupAggregate(table after FROM)
//      count(*) + date column => CountDateRange(table after FROM)
//      otherwise              => Unsupported
//
//    The tables of the join are the tokens right before and right after the
//    JOIN keyword, resolved through the AliasMap. Outer joins and more than
//    one join are Unsupported.
//
// 3) Refinement
//    Every shape starts with the parameters of the canonical benchmark
//    queries (o_orderkey = l_orderkey, l_quantity > 30, ...). When the text
//    also parses with the grammar in package sql, the parameters are read
//    from the AST instead: join keys from ON, predicates from WHERE, group
//    columns from GROUP BY and aggregations from the projection. Anything
//    the shape cannot carry, ie a LIKE in WHERE, a HAVING or a LIMIT, turns
//    the shape into Unsupported. A text the grammar rejects keeps the
//    defaults.
//
// The shape is the single input of the row and column executors; the sql
// executor only uses the text.
