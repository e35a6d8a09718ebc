/*
The sync package decides whether the copy of a local package that's installed
in a project is up to date with the package's source.

There are two types of files:
1) SourceFiles -- These are the files of the local package that npm would
   include if the package were published. The ignore files and the `files`
   field of package.json are applied the same way npm applies them.
2) Installed files -- These are the files within the project's node_modules.

An installed package is up to date if its version and runtime dependencies
match the source's package.json, and every SourceFile exists in the installed
copy with the same modification time. Files that only exist in the installed
copy are not considered.

The comparison only deals with files. Directories aren't compared.
*/
package sync
