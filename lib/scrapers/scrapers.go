package scrapers

// the scrapers here are read-only and mostly stateless, the output of each
// method depends solely on its input.
// EXCEPT for the retry controller's pacing state, that is an implied input
// for each fetch.

// each scraping method generally has this structure:
// 1. transform input into an HTTP request (query, proxy params, headers)
// 2. make the request.
// 3. classify the response status into an outcome the retry controller
//    understands (success, rate limited, credits exhausted, not found, ...)
// 4. transform the response body into an output structure.

// step 4 is usually declarable -> various goquery selectors into a struct
// or slices of structs. review sites churn their markup, so selectors are
// kept in ordered cascades from newest to oldest known layout rather than
// inlined at the call site.

// the stage code (lib/stages) is then the thing that guides the program
// through acquiring all the information we want, combining search, proxy
// fetching, pagination and parsing into one data model.
