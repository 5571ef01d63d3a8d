// Package fetch provides the two fetcher implementations behind the
// driven.Fetcher port: a lightweight HTTP client and a headless-browser
// renderer for sources that block plain clients. The crawl frontier selects
// between them by configured strategy name through the Factory.
package fetch
