// Package vm provides the models for address translations: the address
// format that splits a logical address into a page number and an offset,
// the page table that maps page numbers to frames, and the error kinds
// shared by the address space builder and the paging unit.
package vm
