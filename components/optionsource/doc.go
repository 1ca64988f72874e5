// Package optionsource provides an in-memory option catalog and a small
// net/http handler serving it in the shape composite fields consume:
// GET returns {success, options: [{label, value}]} filtered by a query and
// limit, POST {<field>: value} registers a new option.
//
// Routes follow the data endpoint templates found in schemas, for example
// /platforms/{platformId}/recipients. Sources registered without a platform
// are shared by every platform.
package optionsource
